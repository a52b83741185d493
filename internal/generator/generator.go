// Package generator 将 marketplace 上下文渲染为 markdown 文档。
//
// 每个文档名对应模板目录中的 <name>.md.j2，输出为输出目录中的 <name>.md。
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/catalog"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/config"
	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
)

var (
	// ErrTemplateNotFound 模板文件不存在
	ErrTemplateNotFound = errors.New("template not found")
	// ErrUnknownDoc 请求的文档不在配置的文档列表中
	ErrUnknownDoc = errors.New("unknown documentation file")
)

const (
	// TemplateExt 模板文件后缀
	TemplateExt = ".md.j2"
	// OutputExt 输出文件后缀
	OutputExt = ".md"
)

// Options 单次生成的选项
type Options struct {
	DryRun bool   // 只打印预览，不写文件
	Only   string // 非空时只生成该文档
}

// Generator 文档生成器
type Generator struct {
	cfg    *config.Config
	engine *tmpl.Engine
	logger *slog.Logger
	out    io.Writer
	now    func() time.Time
}

// Option Generator 选项
type Option func(*Generator)

// WithLogger 设置日志记录器
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithEngine 设置模板引擎，可用于注册额外的过滤器
func WithEngine(e *tmpl.Engine) Option {
	return func(g *Generator) {
		if e != nil {
			g.engine = e
		}
	}
}

// WithOutput 设置 dry-run 预览的输出位置，默认 os.Stdout
func WithOutput(w io.Writer) Option {
	return func(g *Generator) {
		if w != nil {
			g.out = w
		}
	}
}

// WithClock 设置上下文中 now 的时间来源
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New 创建生成器
func New(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		engine: tmpl.NewEngine(),
		logger: slog.Default(),
		out:    os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Docs 返回配置的文档名称
func (g *Generator) Docs() []string {
	return slices.Clone(g.cfg.Docs)
}

// Context 读取 marketplace 并构建模板上下文
func (g *Generator) Context() (*catalog.Context, error) {
	market, err := catalog.LoadMarketplace(g.cfg.Marketplace)
	if err != nil {
		return nil, err
	}
	b := catalog.NewBuilder(g.cfg.Plugins,
		catalog.WithLogger(g.logger),
		catalog.WithClock(g.now),
	)
	return b.Build(market), nil
}

// RenderDoc 使用最新的 marketplace 渲染单个文档
func (g *Generator) RenderDoc(name string) (string, error) {
	if !slices.Contains(g.cfg.Docs, name) {
		return "", fmt.Errorf("%w: %s", ErrUnknownDoc, name)
	}
	c, err := g.Context()
	if err != nil {
		return "", err
	}
	return g.render(name, c.Value())
}

// Generate 渲染并写出文档。
//
// 单个文档失败时记录日志并继续；配置 strict 时汇总返回所有失败。
func (g *Generator) Generate(ctx context.Context, opts Options) error {
	docs := g.cfg.Docs
	if opts.Only != "" {
		if !slices.Contains(docs, opts.Only) {
			return fmt.Errorf("%w: %s", ErrUnknownDoc, opts.Only)
		}
		docs = []string{opts.Only}
	}

	c, err := g.Context()
	if err != nil {
		return err
	}
	data := c.Value()

	var errs []error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.generateDoc(doc, data, opts.DryRun); err != nil {
			g.logger.Error("Error generating doc", "file", doc+OutputExt, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", doc, err))
		}
	}

	if g.cfg.Strict {
		return errors.Join(errs...)
	}
	return nil
}

func (g *Generator) generateDoc(doc string, data *tmpl.Map, dryRun bool) error {
	file := doc + OutputExt
	g.logger.Info("Generating", "file", file)

	content, err := g.render(doc, data)
	if err != nil {
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(g.out, "\n--- %s ---\n%s\n\n", file, Preview(content, g.cfg.Preview))
		return err
	}

	path := filepath.Join(g.cfg.Output, file)
	if err := write(path, content); err != nil {
		return err
	}
	g.logger.Info("Generated", "path", path)
	return nil
}

func (g *Generator) render(doc string, data *tmpl.Map) (string, error) {
	path := filepath.Join(g.cfg.Templates, doc+TemplateExt)
	text, err := readTemplate(path)
	if err != nil {
		return "", err
	}
	return g.engine.Render(text, data), nil
}

// Preview 截取前 n 个字符，超出部分以 "..." 表示
func Preview(content string, n int) string {
	runes := []rune(content)
	if n < 0 || len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}

// RenderFile 以 JSON 或 YAML 文件为上下文渲染任意模板文件
func RenderFile(templatePath, contextPath string) (string, error) {
	text, err := readTemplate(templatePath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(contextPath) //nolint:gosec // path is a CLI argument
	if err != nil {
		return "", fmt.Errorf("read context %s: %w", contextPath, err)
	}
	v, err := tmpl.Decode(data)
	if err != nil {
		return "", fmt.Errorf("parse context %s: %w", contextPath, err)
	}

	return tmpl.Render(text, v), nil
}

func readTemplate(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

func write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
