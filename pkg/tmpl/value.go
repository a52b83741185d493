package tmpl

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Value 是模板上下文中的一个值。
//
// 变体是封闭的：String, Int, Float, Bool, None, Undefined, List, *Map。
// String 返回值的字符串形式 (与 Jinja2 的 str() 保持一致)，Truth 返回真值判定结果。
type Value interface {
	String() string
	Truth() bool
}

// Attributer 可由自定义值实现，提供属性风格的查找 (a.b 中的 b)。
type Attributer interface {
	Attr(name string) (Value, bool)
}

// ═══════════════════════════════════════════════════════════════════════════
// 标量
// ═══════════════════════════════════════════════════════════════════════════

// String 字符串值
type String string

func (s String) String() string { return string(s) }
func (s String) Truth() bool    { return s != "" }

// Int 整数值
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Truth() bool    { return i != 0 }

// Float 浮点值
type Float float64

func (f Float) String() string { return formatFloat(float64(f)) }
func (f Float) Truth() bool    { return f != 0 }

// Bool 布尔值
type Bool bool

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b Bool) Truth() bool { return bool(b) }

// None 表示数据中显式的空值 (JSON null)。
type None struct{}

func (None) String() string { return "None" }
func (None) Truth() bool    { return false }

// Undefined 表示无法解析的路径，渲染为空字符串。
type Undefined struct{}

func (Undefined) String() string { return "" }
func (Undefined) Truth() bool    { return false }

// ═══════════════════════════════════════════════════════════════════════════
// 容器
// ═══════════════════════════════════════════════════════════════════════════

// List 有序序列
type List []Value

func (l List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(repr(v))
	}
	b.WriteByte(']')
	return b.String()
}
func (l List) Truth() bool { return len(l) > 0 }

// Map 保持插入顺序的字符串键映射。
//
// 查找按键进行，迭代按插入顺序进行；重复 Set 同一键只更新值，不改变位置。
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap 创建空映射
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set 设置键值，返回 m 以便链式调用。
func (m *Map) Set(key string, v Value) *Map {
	if v == nil {
		v = None{}
	}
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// Get 按键查找
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys 按插入顺序返回所有键
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len 返回键数量
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Range 按插入顺序遍历，fn 返回 false 时停止。
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Values 按插入顺序返回所有值
func (m *Map) Values() List {
	out := make(List, 0, m.Len())
	m.Range(func(_ string, v Value) bool {
		out = append(out, v)
		return true
	})
	return out
}

func (m *Map) String() string {
	var b strings.Builder
	b.WriteByte('{')
	i := 0
	m.Range(func(k string, v Value) bool {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(k))
		b.WriteString(": ")
		b.WriteString(repr(v))
		i++
		return true
	})
	b.WriteByte('}')
	return b.String()
}

func (m *Map) Truth() bool { return m.Len() > 0 }

// ═══════════════════════════════════════════════════════════════════════════
// Go 值转换
// ═══════════════════════════════════════════════════════════════════════════

// FromGo 将 Go 值转换为 Value。
//
// 原生 map 没有顺序，转换时按键排序；需要保持顺序时直接构造 *Map 或使用 [Decode]。
// 结构体按导出字段转换，键名依次取 tmpl tag、json tag、字段名。
func FromGo(v any) Value {
	if v == nil {
		return None{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return String(t)
	case []byte:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(t)
	case int8:
		return Int(t)
	case int16:
		return Int(t)
	case int32:
		return Int(t)
	case int64:
		return Int(t)
	case uint:
		return Int(t)
	case uint8:
		return Int(t)
	case uint16:
		return Int(t)
	case uint32:
		return Int(t)
	case uint64:
		return Int(t)
	case float32:
		return Float(t)
	case float64:
		return Float(t)
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Pointer || !rv.IsNil() {
			return String(t.String())
		}
		return None{}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return None{}
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make(List, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		vals := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			vals[k] = iter.Value()
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromGo(vals[k].Interface()))
		}
		return m
	case reflect.Struct:
		return structToMap(rv)
	}
	return String(fmt.Sprint(v))
}

func structToMap(rv reflect.Value) *Map {
	m := NewMap()
	typ := rv.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}
		m.Set(name, FromGo(rv.Field(i).Interface()))
	}
	return m
}

func fieldName(field reflect.StructField) string {
	for _, tag := range []string{"tmpl", "json"} {
		if v, ok := field.Tag.Lookup(tag); ok {
			if name, _, _ := strings.Cut(v, ","); name != "" {
				return name
			}
		}
	}
	return field.Name
}
