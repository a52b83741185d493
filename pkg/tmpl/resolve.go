package tmpl

import "strings"

// Resolver 解析 "a.b.c|filter|filter" 形式的表达式。
//
// 路径从左到右逐段进入映射或属性，遇到无法进入的段立即停止并返回 [Undefined]；
// 随后按顺序应用过滤器。解析没有副作用，也从不失败。
type Resolver struct {
	filters Filters
}

// NewResolver 创建解析器，filters 为 nil 时使用 [DefaultFilters]。
func NewResolver(filters Filters) *Resolver {
	if filters == nil {
		filters = DefaultFilters()
	}
	return &Resolver{filters: filters}
}

// Resolve 在 scope 中解析表达式
func (r *Resolver) Resolve(expr string, scope *Scope) Value {
	parts := strings.Split(expr, "|")
	v := r.lookup(strings.TrimSpace(parts[0]), scope)
	for _, spec := range parts[1:] {
		v = r.filters.Apply(v, spec)
	}
	return v
}

func (r *Resolver) lookup(path string, scope *Scope) Value {
	segments := strings.Split(path, ".")
	v, ok := scope.Lookup(strings.TrimSpace(segments[0]))
	if !ok {
		return Undefined{}
	}
	for _, seg := range segments[1:] {
		if v, ok = step(v, strings.TrimSpace(seg)); !ok {
			return Undefined{}
		}
	}
	return v
}

// step 以 key 进入 v 一层
func step(v Value, key string) (Value, bool) {
	switch t := v.(type) {
	case *Map:
		return t.Get(key)
	case Attributer:
		return t.Attr(key)
	}
	return nil, false
}
