package tmpl

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// 语法树
// ═══════════════════════════════════════════════════════════════════════════

type node interface{ isNode() }

// textNode 原样输出的文本
type textNode struct{ text string }

// outputNode {{ expr }}
type outputNode struct{ expr string }

type loopKind uint8

const (
	loopPlain loopKind = iota // for x in seq
	loopKeys                  // for k in m.keys()
	loopItems                 // for k, v in m.items()
)

// loopNode {% for ... %}...{% endfor %}
type loopNode struct {
	kind loopKind
	key  string // loopItems 的键变量，其余为循环变量
	val  string // 仅 loopItems
	path string
	body []node
}

// condNode {% if ... %}...{% else %}...{% endif %}
type condNode struct {
	left  string
	right string // 非空时为相等比较
	then  []node
	els   []node
}

func (*textNode) isNode()   {}
func (*outputNode) isNode() {}
func (*loopNode) isNode()   {}
func (*condNode) isNode()   {}

// ═══════════════════════════════════════════════════════════════════════════
// 指令识别
// ═══════════════════════════════════════════════════════════════════════════

type dirKind uint8

const (
	dirNone dirKind = iota
	dirItems
	dirKeys
	dirFor
	dirIfEq
	dirIf
	dirElse
	dirEndfor
	dirEndif
)

const (
	word = `[\p{L}\p{N}_]+`
	path = `[\p{L}\p{N}_.]+`
)

var directives = []struct {
	kind dirKind
	re   *regexp.Regexp
}{
	{dirItems, regexp.MustCompile(`^\s*for\s+(` + word + `)\s*,\s*(` + word + `)\s+in\s+(` + path + `)\.items\(\)\s*$`)},
	{dirKeys, regexp.MustCompile(`^\s*for\s+(` + word + `)\s+in\s+(` + path + `)\.keys\(\)\s*$`)},
	{dirFor, regexp.MustCompile(`^\s*for\s+(` + word + `)\s+in\s+(` + path + `)\s*$`)},
	{dirIfEq, regexp.MustCompile(`^\s*if\s+(` + path + `)\s*==\s*(` + path + `)\s*$`)},
	{dirIf, regexp.MustCompile(`^\s*if\s+(` + path + `)\s*$`)},
	{dirElse, regexp.MustCompile(`^\s*else\s*$`)},
	{dirEndfor, regexp.MustCompile(`^\s*endfor\s*$`)},
	{dirEndif, regexp.MustCompile(`^\s*endif\s*$`)},
}

type directive struct {
	kind dirKind
	args []string
}

func classify(content string) directive {
	for _, d := range directives {
		if m := d.re.FindStringSubmatch(content); m != nil {
			return directive{kind: d.kind, args: m[1:]}
		}
	}
	return directive{}
}

// validExpr 输出表达式只允许单词字符、空白与 . | ( ) ' " ,
// literals 为 true 时引号内的参数可包含任意字符。
func validExpr(expr string, literals bool) bool {
	if expr == "" {
		return false
	}
	var quote rune
	for _, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case literals && (r == '\'' || r == '"'):
			quote = r
		case isWord(r), isSpace(r):
		case strings.ContainsRune(`.|()'",`, r):
		default:
			return false
		}
	}
	return quote == 0
}

var wordRE = regexp.MustCompile(`^[\p{L}\p{N}_]$`)

func isWord(r rune) bool {
	if r < 0x80 {
		return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
	}
	return wordRE.MatchString(string(r))
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// 解析
// ═══════════════════════════════════════════════════════════════════════════

// stopSet 当前块可以被哪些结束指令终止
type stopSet uint8

const (
	stopElse stopSet = 1 << iota
	stopEndfor
	stopEndif
)

func (s stopSet) has(k dirKind) bool {
	switch k {
	case dirElse:
		return s&stopElse != 0
	case dirEndfor:
		return s&stopEndfor != 0
	case dirEndif:
		return s&stopEndif != 0
	}
	return false
}

type parser struct {
	toks     []token
	pos      int
	literals bool
}

func parse(src string, literals bool) []node {
	p := &parser{toks: lex(src), literals: literals}
	nodes, _ := p.parseNodes(0)
	return nodes
}

// parseNodes 解析直到遇到 stop 中的指令或输入结束。
// 终止指令不被消费，由调用方决定归属。
func (p *parser) parseNodes(stop stopSet) ([]node, dirKind) {
	var nodes []node
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		switch tok.kind {
		case tokText:
			p.pos++
			nodes = appendText(nodes, tok.val)
		case tokOutput:
			p.pos++
			if validExpr(tok.val, p.literals) {
				nodes = append(nodes, &outputNode{expr: tok.val})
			} else {
				nodes = dropped(nodes, tok)
			}
		case tokTag:
			d := classify(tok.val)
			if stop.has(d.kind) {
				return nodes, d.kind
			}
			p.pos++
			nodes = p.parseDirective(nodes, tok, d, stop)
		}
	}
	return nodes, dirNone
}

func (p *parser) parseDirective(nodes []node, tok token, d directive, stop stopSet) []node {
	// 条件块内部只继承外层循环的 endfor
	inherited := stop & stopEndfor

	switch d.kind {
	case dirItems, dirKeys, dirFor:
		body, end := p.parseNodes(stopEndfor)
		if end != dirEndfor {
			return splice(dropped(nodes, tok), body)
		}
		p.pos++
		loop := &loopNode{body: body}
		switch d.kind {
		case dirItems:
			loop.kind, loop.key, loop.val, loop.path = loopItems, d.args[0], d.args[1], d.args[2]
		case dirKeys:
			loop.kind, loop.key, loop.path = loopKeys, d.args[0], d.args[1]
		default:
			loop.kind, loop.key, loop.path = loopPlain, d.args[0], d.args[1]
		}
		return append(nodes, loop)

	case dirIfEq:
		body, end := p.parseNodes(stopEndif | inherited)
		if end != dirEndif {
			return splice(dropped(nodes, tok), body)
		}
		p.pos++
		return append(nodes, &condNode{left: d.args[0], right: d.args[1], then: body})

	case dirIf:
		then, end := p.parseNodes(stopElse | stopEndif | inherited)
		switch end {
		case dirEndif:
			p.pos++
			return append(nodes, &condNode{left: d.args[0], then: then})
		case dirElse:
			elseTok := p.toks[p.pos]
			p.pos++
			els, end := p.parseNodes(stopEndif | inherited)
			if end == dirEndif {
				p.pos++
				return append(nodes, &condNode{left: d.args[0], then: then, els: els})
			}
			nodes = splice(dropped(nodes, tok), then)
			return splice(dropped(nodes, elseTok), els)
		}
		return splice(dropped(nodes, tok), then)
	}

	// 不支持或悬空的指令
	return dropped(nodes, tok)
}

// dropped 丢弃无法识别的标签；跨行的标签保留原文。
func dropped(nodes []node, tok token) []node {
	if strings.Contains(tok.raw, "\n") {
		return appendText(nodes, tok.raw)
	}
	return nodes
}

func splice(nodes, children []node) []node {
	for _, n := range children {
		if t, ok := n.(*textNode); ok {
			nodes = appendText(nodes, t.text)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func appendText(nodes []node, s string) []node {
	if s == "" {
		return nodes
	}
	if n := len(nodes); n > 0 {
		if t, ok := nodes[n-1].(*textNode); ok {
			nodes[n-1] = &textNode{text: t.text + s}
			return nodes
		}
	}
	return append(nodes, &textNode{text: s})
}
