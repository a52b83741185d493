// Package command 提供 docgen 各子命令共用的配置与 flag 定义。
package command

import (
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/config"
)

// Defaults 默认配置 - 单一来源 (Single Source of Truth)
var Defaults = config.DefaultConfig()

// Flags 与 config.Config 一一对应的 flag，定义在根命令上，子命令继承。
//
// flag 名称与 koanf key 相同，只有用户明确指定的 flag 会覆盖配置文件和环境变量。
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件路径 (默认按 config.yaml、config/config.yaml 等顺序搜索)",
		},
		&cli.StringFlag{
			Name:  "marketplace",
			Value: Defaults.Marketplace,
			Usage: "marketplace.json 路径",
		},
		&cli.StringFlag{
			Name:  "templates",
			Value: Defaults.Templates,
			Usage: "模板目录",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   Defaults.Output,
			Usage:   "输出目录",
		},
		&cli.StringFlag{
			Name:  "plugins",
			Value: Defaults.Plugins,
			Usage: "插件根目录",
		},
		&cli.StringSliceFlag{
			Name:  "docs",
			Value: Defaults.Docs,
			Usage: "要生成的文档名称",
		},
		&cli.IntFlag{
			Name:  "preview",
			Value: Defaults.Preview,
			Usage: "dry-run 预览字符数",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Value: Defaults.Strict,
			Usage: "任一文档失败时以错误退出",
		},
	}
}

// LoadConfig 加载配置：默认值 → 配置文件 → 环境变量 → CLI flags
func LoadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd)
}
