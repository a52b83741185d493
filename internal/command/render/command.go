// Package render 提供以任意上下文渲染单个模板的命令。
package render

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/generator"
)

// Command 渲染命令
var Command = &cli.Command{
	Name:      "render",
	Usage:     "以 JSON/YAML 文件为上下文渲染模板，结果写到标准输出",
	ArgsUsage: "TEMPLATE",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "context",
			Aliases:  []string{"x"},
			Usage:    "上下文文件 (JSON 或 YAML)",
			Required: true,
		},
	},
	Action: action,
}

func action(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one template argument, got %d", cmd.NArg())
	}

	out, err := generator.RenderFile(cmd.Args().First(), cmd.String("context"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(cmd.Root().Writer, out)
	return err
}
