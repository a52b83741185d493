package tmpl

import "reflect"

// Equal 判断两个值是否相等。
//
// 数值跨类型比较 (Bool 视为 0/1)，Undefined 等同于空字符串，
// 列表逐元素比较，映射比较键集合与对应值 (与顺序无关)。
func Equal(a, b Value) bool {
	a, b = normalize(a), normalize(b)

	if x, ok := a.(Int); ok {
		if y, ok := b.(Int); ok {
			return x == y
		}
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}

	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case None:
		_, ok := b.(None)
		return ok
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		equal := true
		x.Range(func(k string, v Value) bool {
			w, found := y.Get(k)
			equal = found && Equal(v, w)
			return equal
		})
		return equal
	}
	return reflect.DeepEqual(a, b)
}

func normalize(v Value) Value {
	switch v.(type) {
	case nil:
		return None{}
	case Undefined:
		return String("")
	}
	return v
}

func number(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Float:
		return float64(t), true
	case Bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
