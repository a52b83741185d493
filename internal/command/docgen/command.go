// Package docgen 提供 docgen 根命令：从 marketplace 生成文档。
package docgen

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lwmacct/251207-go-pkg-version/pkg/version"
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/command"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/command/render"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/command/server"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/generator"
)

// Command 根命令
var Command = New()

// New 创建根命令
func New() *cli.Command {
	return &cli.Command{
		Name:  "docgen",
		Usage: "根据 marketplace.json 与插件 markdown 生成文档",
		Flags: append(command.Flags(),
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "只生成指定文档 (必须在 docs 列表中)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "只打印预览，不写文件",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "监听 marketplace 与模板变化并重新生成",
			},
		),
		Action: action,
		Commands: []*cli.Command{
			render.Command,
			server.Command,
			configCommand(),
			version.Command,
		},
	}
}

func action(ctx context.Context, cmd *cli.Command) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	gen := generator.New(cfg, generator.WithOutput(cmd.Root().Writer))
	opts := generator.Options{
		DryRun: cmd.Bool("dry-run"),
		Only:   cmd.String("file"),
	}

	if cmd.Bool("watch") {
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return gen.Watch(sigCtx, opts)
	}

	if err := gen.Generate(ctx, opts); err != nil {
		return err
	}
	if !opts.DryRun {
		slog.Info("Documentation generation complete", "output", cfg.Output)
	}
	return nil
}
