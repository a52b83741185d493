// Author: lwmacct (https://github.com/lwmacct)
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
)

// ═══════════════════════════════════════════════════════════════════════════
// 选项
// ═══════════════════════════════════════════════════════════════════════════

type options struct {
	cmd         *cli.Command
	configPaths []string
	configBytes []byte
	bytesExt    string
	envPrefix   string
	envBindKey  string
	envBindings map[string]string
	noExpand    bool
}

// Option 配置加载选项
type Option func(*options)

// WithCommand 设置 CLI 命令，仅用户明确指定的 flag 会覆盖配置。
func WithCommand(cmd *cli.Command) Option {
	return func(o *options) { o.cmd = cmd }
}

// WithConfigPaths 设置配置文件搜索路径，使用第一个存在的文件。
func WithConfigPaths(paths ...string) Option {
	return func(o *options) { o.configPaths = append(o.configPaths, paths...) }
}

// WithConfigBytes 从内存加载配置，ext 决定解析器 (".yaml"、".json")。
// 优先级高于配置文件。
func WithConfigBytes(data []byte, ext string) Option {
	return func(o *options) {
		o.configBytes = data
		o.bytesExt = ext
	}
}

// WithEnvPrefix 启用环境变量前缀，如 "DOCGEN_"。
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// WithEnvBinding 将环境变量直接绑定到配置键
func WithEnvBinding(envName, key string) Option {
	return func(o *options) {
		if o.envBindings == nil {
			o.envBindings = make(map[string]string)
		}
		o.envBindings[envName] = key
	}
}

// WithEnvBindKey 指定配置文件中存放环境变量绑定的键，如 "envbind"。
func WithEnvBindKey(key string) Option {
	return func(o *options) { o.envBindKey = key }
}

// WithoutTemplate 关闭配置文件的模板展开
func WithoutTemplate() Option {
	return func(o *options) { o.noExpand = true }
}

// ═══════════════════════════════════════════════════════════════════════════
// 加载
// ═══════════════════════════════════════════════════════════════════════════

// DefaultPaths 返回默认配置文件搜索路径。
// appName 可选，若提供则包含应用专属路径、用户主目录和系统配置目录。
func DefaultPaths(appName ...string) []string {
	paths := []string{
		"config.yaml",
		"config/config.yaml",
	}

	if len(appName) > 0 && appName[0] != "" {
		name := appName[0]
		paths = append(paths, "."+name+".yaml")
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, "."+name+".yaml"))
		}
		paths = append(paths, "/etc/"+name+"/config.yaml")
	}

	return paths
}

// Load 加载配置，按优先级合并 (从低到高)：
//  1. 默认值 - defaultConfig
//  2. 配置文件 - WithConfigPaths，找到第一个即停止
//  3. 内存配置 - WithConfigBytes
//  4. 环境变量(前缀) - WithEnvPrefix
//  5. 环境变量(绑定) - WithEnvBindKey 与 WithEnvBinding，代码绑定优先
//  6. CLI flags - WithCommand
//
// 泛型参数 T 为配置结构体类型，字段使用 koanf tag 标记。
func Load[T any](defaultConfig T, opts ...Option) (*T, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")

	// 1️⃣ 默认值
	if err := k.Load(structs.Provider(defaultConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	// 2️⃣ 配置文件
	if path := firstExisting(o.configPaths); path != "" {
		if err := loadFile(k, path, !o.noExpand); err != nil {
			return nil, err
		}
		slog.Debug("Loaded config from file", "path", path)
	} else {
		slog.Debug("No config file found, using defaults")
	}

	// 3️⃣ 内存配置
	if o.configBytes != nil {
		if err := loadBytes(k, o.configBytes, o.bytesExt, !o.noExpand); err != nil {
			return nil, fmt.Errorf("failed to load config bytes: %w", err)
		}
	}

	// 4️⃣ 5️⃣ 环境变量
	if err := applyEnv(k, o, collectKoanfKeys(defaultConfig)); err != nil {
		return nil, err
	}

	// 6️⃣ CLI flags
	if o.cmd != nil {
		if err := applyCLIFlags(o.cmd, k, reflect.TypeOf(defaultConfig)); err != nil {
			return nil, err
		}
	}

	var cfg T
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadFile 读取配置文件，先展开模板再按扩展名解析。
func loadFile(k *koanf.Koanf, path string, expand bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the caller's search list
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := loadBytes(k, data, filepath.Ext(path), expand); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

func loadBytes(k *koanf.Koanf, data []byte, ext string, expand bool) error {
	if expand {
		data = []byte(tmpl.ExpandTemplate(string(data)))
	}
	return k.Load(rawbytes.Provider(data), parserForPath(ext))
}

// parserForPath 按扩展名选择解析器，默认 YAML。
// path 也可以只是扩展名，如 ".json" 或 "json"。
func parserForPath(path string) koanf.Parser {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = path
	}
	if strings.EqualFold(strings.TrimPrefix(ext, "."), "json") {
		return json.Parser()
	}
	return yaml.Parser()
}

// ═══════════════════════════════════════════════════════════════════════════
// 环境变量
// ═══════════════════════════════════════════════════════════════════════════

func applyEnv(k *koanf.Koanf, o *options, keys []string) error {
	values := make(map[string]any)

	// 前缀：先按已知键自动绑定，未命中时按命名规则解码
	if o.envPrefix != "" {
		auto := generateEnvBindings(o.envPrefix, keys)
		decode := envKeyDecoder(o.envPrefix)
		for _, kv := range os.Environ() {
			name, val, ok := strings.Cut(kv, "=")
			if !ok || !strings.HasPrefix(name, o.envPrefix) {
				continue
			}
			if key, ok := auto[name]; ok {
				values[key] = envValue(k, key, val)
				continue
			}
			if key := decode(name); canOverlay(k, key) {
				values[key] = envValue(k, key, val)
			}
		}
	}

	// 绑定：配置文件中的绑定先应用，代码绑定覆盖
	bind := func(bindings map[string]string) {
		for env, key := range bindings {
			if val, ok := os.LookupEnv(env); ok {
				values[key] = envValue(k, key, val)
			}
		}
	}
	if o.envBindKey != "" {
		bind(k.StringMap(o.envBindKey))
	}
	bind(o.envBindings)

	if len(values) == 0 {
		return nil
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	return nil
}

// envValue 目标键为列表时按逗号拆分，如 DOCGEN_DOCS=agents,usage。
func envValue(k *koanf.Koanf, key, val string) any {
	cur := k.Get(key)
	if cur == nil || reflect.TypeOf(cur).Kind() != reflect.Slice {
		return val
	}
	if strings.TrimSpace(val) == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// canOverlay 判断 key 能否写入而不改变已有配置的结构：
// 不能覆盖整个配置段，也不能在标量下创建子键。
func canOverlay(k *koanf.Koanf, key string) bool {
	if _, ok := k.Get(key).(map[string]any); ok {
		return false
	}
	parts := strings.Split(key, ".")
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], ".")
		if k.Exists(parent) {
			if _, ok := k.Get(parent).(map[string]any); !ok {
				return false
			}
		}
	}
	return true
}

// envKeyDecoder 返回环境变量名到配置键的转换函数：
// 去掉前缀、转小写、下划线转为点号。
func envKeyDecoder(prefix string) func(string) string {
	return func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), "_", ".")
	}
}

// generateEnvBindings 为每个配置键生成环境变量名：前缀 + 大写键，. 和 - 转为 _。
func generateEnvBindings(prefix string, keys []string) map[string]string {
	r := strings.NewReplacer(".", "_", "-", "_")
	bindings := make(map[string]string, len(keys))
	for _, key := range keys {
		bindings[prefix+strings.ToUpper(r.Replace(key))] = key
	}
	return bindings
}

// collectKoanfKeys 递归收集结构体的全部 koanf 键
func collectKoanfKeys(cfg any) []string {
	var keys []string
	var walk func(typ reflect.Type, prefix string)
	walk = func(typ reflect.Type, prefix string) {
		if typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
		if typ.Kind() != reflect.Struct {
			return
		}
		for i := range typ.NumField() {
			field := typ.Field(i)
			key := field.Tag.Get("koanf")
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			if isNested(field.Type) {
				walk(field.Type, key)
				continue
			}
			keys = append(keys, key)
		}
	}
	walk(reflect.TypeOf(cfg), "")
	return keys
}

func isNested(typ reflect.Type) bool {
	return typ.Kind() == reflect.Struct &&
		typ != reflect.TypeFor[time.Duration]() &&
		typ != reflect.TypeFor[time.Time]()
}

// ═══════════════════════════════════════════════════════════════════════════
// CLI flags
// ═══════════════════════════════════════════════════════════════════════════

// applyCLIFlags 将用户明确指定的 CLI flags 应用到 koanf 实例。
//
// flag 名称由 koanf key 推导，支持两种形式 (优先 kebab-case)：
//   - server.url → --server-url 或 --server.url
//   - tls.skip_verify → --tls-skip_verify 或 --tls.skip_verify
func applyCLIFlags(cmd *cli.Command, k *koanf.Koanf, typ reflect.Type) error {
	values := make(map[string]any)
	collectCLIFlags(cmd, values, typ, "")
	if len(values) == 0 {
		return nil
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return fmt.Errorf("failed to load cli flags: %w", err)
	}
	return nil
}

func collectCLIFlags(cmd *cli.Command, values map[string]any, typ reflect.Type, prefix string) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	for i := range typ.NumField() {
		field := typ.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		if isNested(field.Type) {
			collectCLIFlags(cmd, values, field.Type, key)
			continue
		}

		flag := strings.ReplaceAll(key, ".", "-")
		if !cmd.IsSet(flag) {
			flag = key
			if !cmd.IsSet(flag) {
				continue
			}
		}
		if v, ok := cliFlagValue(cmd, flag, field.Type); ok {
			values[key] = v
		}
	}
}

// cliFlagValue 根据字段类型从 CLI 读取值
func cliFlagValue(cmd *cli.Command, flag string, typ reflect.Type) (any, bool) {
	switch typ {
	case reflect.TypeFor[time.Duration]():
		return cmd.Duration(flag), true
	case reflect.TypeFor[time.Time]():
		return cmd.Timestamp(flag), true
	}

	switch typ.Kind() {
	case reflect.String:
		return cmd.String(flag), true
	case reflect.Bool:
		return cmd.Bool(flag), true
	case reflect.Int:
		return cmd.Int(flag), true
	case reflect.Int8:
		return cmd.Int8(flag), true
	case reflect.Int16:
		return cmd.Int16(flag), true
	case reflect.Int32:
		return cmd.Int32(flag), true
	case reflect.Int64:
		return cmd.Int64(flag), true
	case reflect.Uint:
		return cmd.Uint(flag), true
	case reflect.Uint16:
		return cmd.Uint16(flag), true
	case reflect.Uint32:
		return cmd.Uint32(flag), true
	case reflect.Uint64:
		return cmd.Uint64(flag), true
	case reflect.Float32:
		return cmd.Float32(flag), true
	case reflect.Float64:
		return cmd.Float64(flag), true
	case reflect.Slice:
		switch typ.Elem().Kind() {
		case reflect.String:
			return cmd.StringSlice(flag), true
		case reflect.Int:
			return cmd.IntSlice(flag), true
		case reflect.Int64:
			return cmd.Int64Slice(flag), true
		case reflect.Float64:
			return cmd.Float64Slice(flag), true
		}
	case reflect.Map:
		if typ.Key().Kind() == reflect.String && typ.Elem().Kind() == reflect.String {
			return cmd.StringMap(flag), true
		}
	}
	return nil, false
}
