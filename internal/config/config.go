// Package config 提供应用配置管理。
//
// 配置加载优先级 (从低到高)：
//  1. 默认值 - DefaultConfig() 函数中定义
//  2. 配置文件 - --config 指定，否则按默认路径搜索
//  3. 环境变量 - DOCGEN_ 前缀
//  4. CLI flags - 仅用户明确指定的 flag
package config

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/pkg/config"
)

// AppName 应用名称，用于默认配置路径
const AppName = "docgen"

// EnvPrefix 环境变量前缀
const EnvPrefix = "DOCGEN_"

// Config 应用配置
type Config struct {
	Marketplace string        `koanf:"marketplace" desc:"marketplace.json 路径"`
	Templates   string        `koanf:"templates" desc:"模板目录，包含 <doc>.md.j2"`
	Output      string        `koanf:"output" desc:"输出目录"`
	Plugins     string        `koanf:"plugins" desc:"插件根目录"`
	Docs        []string      `koanf:"docs" desc:"要生成的文档名称"`
	Preview     int           `koanf:"preview" desc:"dry-run 预览字符数"`
	Strict      bool          `koanf:"strict" desc:"任一文档失败时返回错误"`
	Addr        string        `koanf:"addr" desc:"serve 模式监听地址"`
	Timeout     time.Duration `koanf:"timeout" desc:"serve 模式 HTTP 读写超时"`
}

// DefaultConfig 返回默认配置
// 注意：internal/command/command.go 中的 Defaults 变量引用此函数以实现单一配置来源。
func DefaultConfig() Config {
	return Config{
		Marketplace: ".claude-plugin/marketplace.json",
		Templates:   "plugins/claude-plugin/skills/documentation-update/assets",
		Output:      "docs",
		Plugins:     "plugins",
		Docs:        []string{"agents", "agent-skills", "plugins", "usage"},
		Preview:     500,
		Strict:      false,
		Addr:        ":8080",
		Timeout:     10 * time.Second,
	}
}

// Load 加载配置。cmd 可以为 nil。
func Load(cmd *cli.Command, opts ...config.Option) (*Config, error) {
	paths := config.DefaultPaths(AppName)
	if cmd != nil && cmd.IsSet("config") {
		paths = []string{cmd.String("config")}
	}

	return config.Load(
		DefaultConfig(),
		append([]config.Option{
			config.WithConfigPaths(paths...),
			config.WithEnvPrefix(EnvPrefix),
			config.WithCommand(cmd),
		}, opts...)...,
	)
}
