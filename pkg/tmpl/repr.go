package tmpl

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// repr 返回容器内元素的表示形式：字符串带引号，其余与 String 相同。
func repr(v Value) string {
	switch t := v.(type) {
	case String:
		return quote(string(t))
	case Undefined:
		return "''"
	case nil:
		return "None"
	}
	return v.String()
}

// quote 按 Python repr 规则给字符串加引号：
// 默认单引号，仅当内容含单引号且不含双引号时改用双引号。
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\x`)
			b.WriteString(pad(strconv.FormatInt(int64(r), 16), 2))
		case !unicode.IsPrint(r) && r > 0x7f:
			if r > 0xffff {
				b.WriteString(`\U`)
				b.WriteString(pad(strconv.FormatInt(int64(r), 16), 8))
			} else {
				b.WriteString(`\u`)
				b.WriteString(pad(strconv.FormatInt(int64(r), 16), 4))
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// formatFloat 输出最短往返表示：整数值保留 ".0"，指数在 [-4, 16) 之外时使用科学计数法。
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(e, "e")
	n, _ := strconv.Atoi(exp)
	if n < -4 || n >= 16 {
		if !strings.HasPrefix(exp, "-") && !strings.HasPrefix(exp, "+") {
			exp = "+" + exp
		}
		return mant + "e" + exp
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
