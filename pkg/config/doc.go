// Package config 提供通用的配置加载功能，可被外部项目复用。
//
// # 特性
//
// 使用泛型支持任意配置结构体类型，配置加载优先级 (从低到高)：
//  1. 默认值 - 通过 defaultConfig 参数传入
//  2. 配置文件 - 通过 WithConfigPaths 选项设置 (YAML 或 JSON，按扩展名选择)
//  3. 内存配置 - 通过 WithConfigBytes 选项设置
//  4. 环境变量(前缀) - 通过 WithEnvPrefix 选项启用
//  5. 环境变量(绑定) - 通过 WithEnvBindKey(配置文件) 或 WithEnvBinding(代码) 设置
//  6. CLI flags - 通过 WithCommand 选项设置，最高优先级
//
// # 快速开始
//
// 定义配置结构体，使用 koanf 和 desc 标签：
//
//	type Config struct {
//	    Output  string   `koanf:"output"  desc:"输出目录"`
//	    Docs    []string `koanf:"docs"    desc:"要生成的文档"`
//	    Preview int      `koanf:"preview" desc:"预览字符数"`
//	}
//
// 加载配置：
//
//	cfg, err := config.Load(Config{Output: "docs", Preview: 500},
//	    config.WithConfigPaths(config.DefaultPaths("docgen")...),
//	    config.WithEnvPrefix("DOCGEN_"),
//	    config.WithCommand(cmd),
//	)
//
// # 模板展开
//
// 配置文件内容在解析前经过 [tmpl.ExpandTemplate] 展开，可以直接引用环境变量：
//
//	output: "{{ HOME }}/site/docs"
//	strict: {% if CI %}true{% else %}false{% endif %}
//
// 使用 [WithoutTemplate] 关闭展开。
//
// # 环境变量(前缀)
//
// 通过 [WithEnvPrefix] 启用，命名规则为前缀 + 大写的 koanf key，
// 点号 (.) 与连字符 (-) 转为下划线 (_)：
//   - DOCGEN_OUTPUT → output
//   - DOCGEN_SERVER_ADDR → server.addr
//   - DOCGEN_CLIENT_SERVER_PASSWORD → client.server-password
//
// 切片字段可用逗号分隔：DOCGEN_DOCS=agents,usage。
//
// # 环境变量(绑定)
//
// 通过代码 [WithEnvBinding] 或配置文件 [WithEnvBindKey] 绑定任意环境变量：
//
//	# config.yaml
//	envbind:
//	  SITE_OUTPUT: output
//
// 代码中的绑定优先级高于配置文件中的绑定。
//
// # CLI Flag 映射
//
// 支持两种 CLI flag 格式 (优先使用 kebab-case)：
//   - server.url → --server-url 或 --server.url
//
// 仅用户明确指定的 flag 会覆盖配置。
//
// # 生成配置示例
//
// 使用 [ExampleYAML] 根据配置结构体生成带注释的 YAML 示例，
// 使用 [ConfigTestHelper] 在测试中生成示例文件并校验本地配置的键名。
package config
