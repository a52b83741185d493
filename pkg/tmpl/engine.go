package tmpl

import (
	"strings"
	"sync"
)

// Template 已解析的模板，不可变，可并发执行。
type Template struct {
	nodes    []node
	resolver *Resolver
}

// Execute 以 data 为上下文渲染模板。
//
// data 可以是 [Value] (通常为 *Map) 或任意 Go 值，后者经 [FromGo] 转换。
// 渲染从不失败：无法解析的值输出为空。
func (t *Template) Execute(data any) string {
	var root Value
	if data != nil {
		root = FromGo(data)
	}
	var b strings.Builder
	r := &renderer{resolver: t.resolver}
	r.render(&b, t.nodes, NewScope(root))
	return b.String()
}

// ═══════════════════════════════════════════════════════════════════════════
// Engine
// ═══════════════════════════════════════════════════════════════════════════

// Engine 模板引擎，缓存按模板文本索引的解析结果。
//
// Engine 可被多个 goroutine 共享。
type Engine struct {
	resolver *Resolver
	nocache  bool
	literals bool

	mu    sync.RWMutex
	cache map[string]*Template
}

// Option 引擎选项
type Option func(*Engine)

// WithFilter 注册或覆盖过滤器
func WithFilter(name string, fn FilterFunc) Option {
	return func(e *Engine) {
		e.resolver.filters[name] = fn
	}
}

// WithoutCache 禁用解析缓存
func WithoutCache() Option {
	return func(e *Engine) {
		e.nocache = true
	}
}

// WithLiteralArgs 允许过滤器的引号参数包含任意字符，如 default('http://localhost:8080')。
// 默认情况下含有其他字符的表达式视为无效并被移除。
func WithLiteralArgs() Option {
	return func(e *Engine) {
		e.literals = true
	}
}

// NewEngine 创建模板引擎
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		resolver: NewResolver(DefaultFilters()),
		cache:    make(map[string]*Template),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse 解析模板文本。相同文本返回同一个 *Template。
func (e *Engine) Parse(text string) *Template {
	if e.nocache {
		return &Template{nodes: parse(text, e.literals), resolver: e.resolver}
	}

	e.mu.RLock()
	t, ok := e.cache[text]
	e.mu.RUnlock()
	if ok {
		return t
	}

	t = &Template{nodes: parse(text, e.literals), resolver: e.resolver}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.cache[text]; ok {
		return cached
	}
	e.cache[text] = t
	return t
}

// Render 解析并渲染模板
func (e *Engine) Render(text string, data any) string {
	return e.Parse(text).Execute(data)
}

// ClearCache 清空解析缓存
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]*Template)
	e.mu.Unlock()
}

var defaultEngine = NewEngine()

// Render 使用默认引擎渲染模板
func Render(text string, data any) string {
	return defaultEngine.Render(text, data)
}

// Parse 使用默认引擎解析模板
func Parse(text string) *Template {
	return defaultEngine.Parse(text)
}
