package tmpl

import "strings"

// 词法分析：把模板切分为文本、{{ 输出 }} 与 {% 指令 %} 三类 token。
// 未闭合的定界符本身按普通文本处理，其后的内容照常扫描。

type tokenKind uint8

const (
	tokText tokenKind = iota
	tokOutput
	tokTag
)

type token struct {
	kind tokenKind
	val  string // 输出/指令为定界符内的内容，文本为原文
	raw  string // 含定界符的原文
}

func lex(src string) []token {
	var toks []token
	text := func(s string) {
		if s == "" {
			return
		}
		if n := len(toks); n > 0 && toks[n-1].kind == tokText {
			toks[n-1].val += s
			toks[n-1].raw += s
			return
		}
		toks = append(toks, token{kind: tokText, val: s, raw: s})
	}

	for src != "" {
		i := nextOpen(src)
		if i < 0 {
			text(src)
			break
		}
		text(src[:i])
		src = src[i:]

		kind, closer := tokOutput, "}}"
		if src[1] == '%' {
			kind, closer = tokTag, "%}"
		}
		// 没有结束符，或内容中又出现定界符：本定界符按文本处理，从其后继续扫描
		j := strings.Index(src[2:], closer)
		if j < 0 || nextOpen(src[2:2+j]) >= 0 {
			text(src[:2])
			src = src[2:]
			continue
		}
		end := 2 + j + len(closer)
		toks = append(toks, token{kind: kind, val: src[2 : 2+j], raw: src[:end]})
		src = src[end:]
	}
	return toks
}

// nextOpen 返回下一个 "{{" 或 "{%" 的位置
func nextOpen(s string) int {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '{' && (s[i+1] == '{' || s[i+1] == '%') {
			return i
		}
	}
	return -1
}
