package tmpl

import "strings"

type renderer struct {
	resolver *Resolver
}

func (r *renderer) render(b *strings.Builder, nodes []node, s *Scope) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *textNode:
			b.WriteString(n.text)
		case *outputNode:
			writeValue(b, r.resolver.Resolve(n.expr, s))
		case *loopNode:
			r.renderLoop(b, n, s)
		case *condNode:
			r.renderCond(b, n, s)
		}
	}
}

func writeValue(b *strings.Builder, v Value) {
	switch v.(type) {
	case nil, None, Undefined:
		return
	}
	b.WriteString(v.String())
}

func (r *renderer) renderLoop(b *strings.Builder, n *loopNode, s *Scope) {
	v := r.resolver.Resolve(n.path, s)

	switch n.kind {
	case loopItems, loopKeys:
		m, ok := v.(*Map)
		if !ok {
			return
		}
		m.Range(func(k string, item Value) bool {
			child := s.Child()
			child.Set(n.key, String(k))
			if n.kind == loopItems {
				child.Set(n.val, item)
			}
			r.render(b, n.body, child)
			return true
		})

	case loopPlain:
		var items List
		switch t := v.(type) {
		case *Map:
			items = t.Values()
		case List:
			items = t
		default:
			return
		}
		for _, item := range items {
			child := s.Child()
			child.Set(n.key, item)
			// 映射元素的字段另以扁平名称 "x.field" 绑定，可经 Scope.Lookup 直接取得
			if m, ok := item.(*Map); ok {
				m.Range(func(k string, fv Value) bool {
					child.Set(n.key+"."+k, fv)
					return true
				})
			}
			r.render(b, n.body, child)
		}
	}
}

func (r *renderer) renderCond(b *strings.Builder, n *condNode, s *Scope) {
	var ok bool
	if n.right != "" {
		ok = Equal(r.resolver.Resolve(n.left, s), r.resolver.Resolve(n.right, s))
	} else {
		v := r.resolver.Resolve(n.left, s)
		ok = v != nil && v.Truth()
	}
	if ok {
		r.render(b, n.then, s)
	} else {
		r.render(b, n.els, s)
	}
}
