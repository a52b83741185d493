package tmpl

// Scope 是一次渲染中的变量作用域。
//
// 查找先看本层绑定，未命中时回退到父作用域，最后回退到根数据。
// 循环的每次迭代都创建新的子作用域，迭代结束后丢弃，
// 因此循环变量不会泄漏到兄弟迭代或循环之后的文本。
type Scope struct {
	parent *Scope
	root   Value
	vars   map[string]Value
}

// NewScope 以 data 作为根数据创建作用域。
//
// data 为 *Map 时顶层键即变量名；其他实现 [Attributer] 的值按属性查找。
func NewScope(data Value) *Scope {
	if data == nil {
		data = NewMap()
	}
	return &Scope{root: data}
}

// Child 创建子作用域
func (s *Scope) Child() *Scope {
	return &Scope{parent: s}
}

// Set 在本层绑定变量，不影响父作用域。
func (s *Scope) Set(name string, v Value) {
	if s.vars == nil {
		s.vars = make(map[string]Value)
	}
	s.vars[name] = v
}

// Lookup 按名称查找变量
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
		if cur.root != nil {
			return step(cur.root, name)
		}
	}
	return nil, false
}
