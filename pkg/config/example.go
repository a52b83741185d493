package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "go.yaml.in/yaml/v3"
)

// exampleHeader 示例文件头注释
const exampleHeader = "配置示例文件, 复制此文件为 config.yaml 并根据需要修改"

// ExampleYAML 将配置结构体序列化为带注释的 YAML。
//
// 注释取自 desc tag：单行注释写在行尾，多行注释以及结构体、列表字段的注释写在键的上方。
//
// 使用示例：
//
//	yaml := config.ExampleYAML(DefaultConfig())
//	os.WriteFile("config/config.example.yaml", yaml, 0644)
func ExampleYAML[T any](cfg T) []byte {
	node := structNode(reflect.ValueOf(cfg))
	node.HeadComment = exampleHeader

	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	_ = enc.Encode(node)
	_ = enc.Close()

	return buf.Bytes()
}

// MarshalYAML 将配置结构体序列化为 YAML (无注释)。
func MarshalYAML[T any](cfg T) []byte {
	return marshal(cfg, yaml.Parser())
}

// MarshalJSON 将配置结构体序列化为 JSON，键名取 koanf tag。
func MarshalJSON[T any](cfg T) []byte {
	return marshal(cfg, json.Parser())
}

func marshal(cfg any, p koanf.Parser) []byte {
	k := koanf.New(".")
	_ = k.Load(structs.Provider(cfg, "koanf"), nil)
	data, _ := k.Marshal(p)

	return data
}

// ═══════════════════════════════════════════════════════════════════════════
// yaml.Node 构造
// ═══════════════════════════════════════════════════════════════════════════

func structNode(val reflect.Value) *yamlv3.Node {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!null"}
		}
		val = val.Elem()
	}

	node := &yamlv3.Node{Kind: yamlv3.MappingNode}
	typ := val.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" {
			continue
		}
		desc := field.Tag.Get("desc")

		keyNode := &yamlv3.Node{Kind: yamlv3.ScalarNode, Value: key}
		var valNode *yamlv3.Node
		if isNested(field.Type) {
			valNode = structNode(val.Field(i))
		} else {
			valNode = valueNode(val.Field(i))
		}

		switch {
		case desc == "":
		case isNested(field.Type), field.Type.Kind() == reflect.Slice, strings.Contains(desc, "\n"):
			keyNode.HeadComment = "\n" + desc
		default:
			valNode.LineComment = desc
		}

		node.Content = append(node.Content, keyNode, valNode)
	}

	return node
}

func scalar(v string) *yamlv3.Node {
	return &yamlv3.Node{Kind: yamlv3.ScalarNode, Value: v}
}

func valueNode(val reflect.Value) *yamlv3.Node {
	switch v := val.Interface().(type) {
	case time.Duration:
		return scalar(v.String())
	case time.Time:
		return scalar(v.Format(time.RFC3339))
	}

	switch val.Kind() {
	case reflect.String:
		n := scalar(val.String())
		n.Style = yamlv3.DoubleQuotedStyle
		return n
	case reflect.Bool:
		return scalar(strconv.FormatBool(val.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar(strconv.FormatInt(val.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar(strconv.FormatUint(val.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return scalar(strconv.FormatFloat(val.Float(), 'g', -1, 64))

	case reflect.Slice, reflect.Array:
		node := &yamlv3.Node{Kind: yamlv3.SequenceNode}
		if val.Len() == 0 {
			node.Style = yamlv3.FlowStyle
		}
		for j := range val.Len() {
			elem := valueNode(val.Index(j))
			elem.Style = 0
			node.Content = append(node.Content, elem)
		}
		return node

	case reflect.Map:
		node := &yamlv3.Node{Kind: yamlv3.MappingNode}
		if val.Len() == 0 {
			node.Style = yamlv3.FlowStyle
			return node
		}
		// 按键排序保证输出稳定
		keys := val.MapKeys()
		sort.Slice(keys, func(a, b int) bool {
			return fmt.Sprint(keys[a].Interface()) < fmt.Sprint(keys[b].Interface())
		})
		for _, k := range keys {
			node.Content = append(node.Content,
				scalar(fmt.Sprint(k.Interface())),
				valueNode(val.MapIndex(k)),
			)
		}
		return node
	}

	return scalar(fmt.Sprint(val.Interface()))
}

// ═══════════════════════════════════════════════════════════════════════════
// 测试辅助
// ═══════════════════════════════════════════════════════════════════════════

// ConfigTestHelper 配置测试辅助工具
//
// 使用示例：
//
//	var helper = config.ConfigTestHelper[Config]{
//	    ExamplePath: "config/config.example.yaml",
//	    ConfigPath:  "config/config.yaml",
//	}
//
//	func TestWriteExample(t *testing.T) { helper.WriteExampleFile(t, DefaultConfig()) }
//	func TestConfigKeysValid(t *testing.T) { helper.ValidateKeys(t) }
type ConfigTestHelper[T any] struct {
	ExamplePath string // 示例文件相对路径（相对于 go.mod 所在目录）
	ConfigPath  string // 配置文件相对路径（相对于 go.mod 所在目录）
}

// WriteExampleFile 将示例配置写入文件
func (h *ConfigTestHelper[T]) WriteExampleFile(t *testing.T, defaultConfig T) {
	t.Helper()

	root, err := FindProjectRoot(1)
	if err != nil {
		t.Fatalf("无法找到项目根目录: %v", err)
	}

	outputPath := filepath.Join(root, h.ExamplePath)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0750); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(outputPath, ExampleYAML(defaultConfig), 0600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	t.Logf("已生成配置示例文件: %s", outputPath)
}

// ValidateKeys 校验配置文件中的键名是否都在示例文件中定义
func (h *ConfigTestHelper[T]) ValidateKeys(t *testing.T) {
	t.Helper()

	root, err := FindProjectRoot(1)
	if err != nil {
		t.Fatalf("无法找到项目根目录: %v", err)
	}

	configPath := filepath.Join(root, h.ConfigPath)
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		t.Skipf("%s 不存在，跳过验证", h.ConfigPath)
	}

	exampleKeys, err := loadConfigKeys(filepath.Join(root, h.ExamplePath))
	if err != nil {
		t.Fatalf("无法加载 %s: %v", h.ExamplePath, err)
	}
	configKeys, err := loadConfigKeys(configPath)
	if err != nil {
		t.Fatalf("无法加载 %s: %v", h.ConfigPath, err)
	}

	if invalid := unknownKeys(exampleKeys, configKeys); len(invalid) > 0 {
		t.Errorf("%s 包含以下无效配置项:\n  - %s", h.ConfigPath, strings.Join(invalid, "\n  - "))
	}
}

// unknownKeys 返回 keys 中不在 known 里的键
func unknownKeys(known, keys []string) []string {
	valid := make(map[string]bool, len(known))
	for _, key := range known {
		valid[key] = true
	}

	var invalid []string
	for _, key := range keys {
		if !valid[key] {
			invalid = append(invalid, key)
		}
	}
	return invalid
}

// FindProjectRoot 通过查找 go.mod 文件定位项目根目录。
//
// skip 指定跳过的调用栈层数，0 表示调用者，1 表示调用者的调用者，以此类推。
func FindProjectRoot(skip int) (string, error) {
	_, filename, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "", errors.New("无法获取当前文件路径")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("未找到 go.mod")
		}
		dir = parent
	}
}

// loadConfigKeys 加载配置文件并返回所有配置键（支持 YAML 和 JSON）。
func loadConfigKeys(path string) ([]string, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserForPath(path)); err != nil {
		return nil, fmt.Errorf("加载文件失败: %w", err)
	}

	return k.Keys(), nil
}
