package docgen

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/command"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/config"
	pkgconfig "github.com/lwmacct/251220-go-pkg-docgen/pkg/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "打印合并后的生效配置",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "以 JSON 输出"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				return err
			}
			out := pkgconfig.MarshalYAML(*cfg)
			if cmd.Bool("json") {
				out = pkgconfig.MarshalJSON(*cfg)
			}
			_, err = cmd.Root().Writer.Write(out)
			return err
		},
		Commands: []*cli.Command{
			{
				Name:  "example",
				Usage: "打印带注释的示例配置",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := cmd.Root().Writer.Write(pkgconfig.ExampleYAML(config.DefaultConfig()))
					return err
				},
			},
		},
	}
}
