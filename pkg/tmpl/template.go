package tmpl

import (
	"os"
	"sort"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// 环境变量展开
// ═══════════════════════════════════════════════════════════════════════════

// envData 以环境变量为顶层键构造上下文，键按名称排序。
func envData() *Map {
	environ := os.Environ()
	sort.Strings(environ)

	m := NewMap()
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m.Set(k, String(v))
		}
	}
	return m
}

// ExpandTemplate 展开文本中的环境变量引用，用于配置文件。
//
// 支持的语法：
//   - {{ HOME }} 直接引用环境变量，未设置时为空
//   - {{ API_KEY|default('sk-xxx') }} 未设置或为空时使用默认值
//   - {{ OPENAI_KEY|coalesce('ANTHROPIC_KEY')|default('none') }} 依次回退到其他环境变量
//   - {% if DEBUG %}...{% else %}...{% endif %} 按环境变量是否非空选择
//   - {% if APP_ENV == PROD_ENV %}...{% endif %} 比较两个变量
//   - {{ APP_NAME|title }} 过滤器
//
// 展开从不失败；展开结果不会被再次扫描。
func ExpandTemplate(text string) string {
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return text
	}
	return expandEngine.Render(text, envData())
}

// 配置文件只展开一次，不需要缓存。
var expandEngine = NewEngine(
	WithoutCache(),
	WithLiteralArgs(),
	WithFilter("default", defaultFilter),
	WithFilter("coalesce", coalesceFilter),
)

// ═══════════════════════════════════════════════════════════════════════════
// 回退过滤器 (参考: Taskfile 和 Sprig)
// ═══════════════════════════════════════════════════════════════════════════

// defaultFilter 值为空时返回参数字面量
func defaultFilter(v Value, args []string) Value {
	if len(args) == 0 || !isEmpty(v) {
		return v
	}
	return String(args[0])
}

// coalesceFilter 值为空时改用参数所命名的环境变量
func coalesceFilter(v Value, args []string) Value {
	if len(args) == 0 || !isEmpty(v) {
		return v
	}
	return String(os.Getenv(args[0]))
}

func isEmpty(v Value) bool {
	switch t := v.(type) {
	case nil, None, Undefined:
		return true
	case String:
		return t == ""
	}
	return false
}
