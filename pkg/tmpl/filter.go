package tmpl

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FilterFunc 过滤器函数：接收当前值与括号内的字面量参数，返回新值。
type FilterFunc func(v Value, args []string) Value

// Filters 过滤器注册表
type Filters map[string]FilterFunc

// filterCall 匹配带一个引号字面量参数的过滤器，如 join(', ')；括号必须紧跟名称。
var filterCall = regexp.MustCompile(`^([\p{L}\p{N}_]+)\(['"]([^'"]*)['"]\)`)

// DefaultFilters 返回内置过滤器：title, length, join。
func DefaultFilters() Filters {
	return Filters{
		"title":  titleFilter,
		"length": lengthFilter,
		"join":   joinFilter,
	}
}

// Clone 返回注册表副本
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Apply 按 spec (如 "join(', ')") 应用过滤器；未知过滤器原样返回输入。
func (f Filters) Apply(v Value, spec string) Value {
	name, args := parseFilter(spec)
	fn, ok := f[name]
	if !ok {
		return v
	}
	return fn(v, args)
}

// parseFilter 拆分过滤器名称与参数。其他写法 (如 "title()"、"join (',')")
// 整体作为名称，按未知过滤器处理。
func parseFilter(spec string) (string, []string) {
	spec = strings.TrimSpace(spec)
	if m := filterCall.FindStringSubmatch(spec); m != nil {
		return m[1], []string{m[2]}
	}
	return spec, nil
}

// titleFilter 将 - 和 _ 替换为空格，再把每个单词首字母大写、其余小写。
func titleFilter(v Value, _ []string) Value {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(v.String())
	return String(titleCase(s))
}

// titleCase 单词边界为任意无大小写的字符，例如 "it's" → "It'S"。
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && prevCased:
			r = unicode.ToLower(r)
		case cased:
			r = unicode.ToTitle(r)
		}
		prevCased = cased
		b.WriteRune(r)
	}
	return b.String()
}

// lengthFilter 返回容器或字符串的长度，其他值为 0。
func lengthFilter(v Value, _ []string) Value {
	switch t := v.(type) {
	case String:
		return Int(utf8.RuneCountInString(string(t)))
	case List:
		return Int(len(t))
	case *Map:
		return Int(t.Len())
	}
	return Int(0)
}

// joinFilter 用分隔符连接序列元素；非序列或缺少分隔符时返回值的字符串形式。
func joinFilter(v Value, args []string) Value {
	list, ok := v.(List)
	if !ok || len(args) == 0 {
		return String(v.String())
	}
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = e.String()
	}
	return String(strings.Join(parts, args[0]))
}
