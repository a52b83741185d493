package generator

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/catalog"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/config"
	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// setup 构造一个最小的 marketplace 工作区
func setup(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "marketplace.json"), `{
  "name": "demo",
  "plugins": [
    {"name": "alpha", "category": "dev", "agents": ["./agents/rev.md"]},
    {"name": "beta"}
  ]
}`)
	writeFile(t, filepath.Join(dir, "plugins/alpha/agents/rev.md"),
		"---\nname: reviewer\ndescription: Reviews\n---\n")

	writeFile(t, filepath.Join(dir, "tpl/agents.md.j2"),
		"# Agents ({{ stats.total_agents }})\n{% for a in all_agents %}- {{ a.name }}: {{ a.description }}\n{% endfor %}")
	writeFile(t, filepath.Join(dir, "tpl/plugins.md.j2"),
		"{% for cat, ps in plugins_by_category.items() %}## {{ cat|title }}\n{% for p in ps %}- {{ p.name }}\n{% endfor %}{% endfor %}")

	cfg := config.DefaultConfig()
	cfg.Marketplace = filepath.Join(dir, "marketplace.json")
	cfg.Templates = filepath.Join(dir, "tpl")
	cfg.Output = filepath.Join(dir, "out", "docs")
	cfg.Plugins = filepath.Join(dir, "plugins")
	cfg.Docs = []string{"agents", "plugins"}
	return &cfg
}

func newTestGenerator(cfg *config.Config, out *bytes.Buffer) *Generator {
	return New(cfg,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithOutput(out),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func readOutput(t *testing.T, cfg *config.Config, doc string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Output, doc+OutputExt))
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_WritesDocs(t *testing.T) {
	cfg := setup(t)
	var out bytes.Buffer

	require.NoError(t, newTestGenerator(cfg, &out).Generate(context.Background(), Options{}))

	assert.Equal(t, "# Agents (1)\n- reviewer: Reviews\n", readOutput(t, cfg, "agents"))
	assert.Equal(t, "## Dev\n- alpha\n## General\n- beta\n", readOutput(t, cfg, "plugins"))
	assert.Empty(t, out.String())
}

func TestGenerate_DryRun(t *testing.T) {
	cfg := setup(t)
	cfg.Preview = 10
	var out bytes.Buffer

	require.NoError(t, newTestGenerator(cfg, &out).Generate(context.Background(), Options{DryRun: true, Only: "agents"}))

	assert.Equal(t, "\n--- agents.md ---\n# Agents (...\n\n", out.String())
	assert.NoDirExists(t, cfg.Output)
}

func TestGenerate_UnknownDoc(t *testing.T) {
	cfg := setup(t)
	err := newTestGenerator(cfg, &bytes.Buffer{}).Generate(context.Background(), Options{Only: "usage"})
	require.ErrorIs(t, err, ErrUnknownDoc)
	assert.EqualError(t, err, "unknown documentation file: usage")
}

func TestGenerate_MissingMarketplace(t *testing.T) {
	cfg := setup(t)
	cfg.Marketplace = filepath.Join(t.TempDir(), "none.json")
	err := newTestGenerator(cfg, &bytes.Buffer{}).Generate(context.Background(), Options{})
	require.ErrorIs(t, err, catalog.ErrMarketplaceNotFound)
}

func TestGenerate_MissingTemplate(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		wantErr bool
	}{
		{name: "lenient continues", strict: false, wantErr: false},
		{name: "strict reports", strict: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t)
			cfg.Docs = []string{"usage", "agents"}
			cfg.Strict = tt.strict

			err := newTestGenerator(cfg, &bytes.Buffer{}).Generate(context.Background(), Options{})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTemplateNotFound)
				assert.Contains(t, err.Error(), "usage.md.j2")
			} else {
				require.NoError(t, err)
			}
			// 失败的文档不影响后续文档
			assert.NotEmpty(t, readOutput(t, cfg, "agents"))
		})
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	cfg := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestGenerator(cfg, &bytes.Buffer{}).Generate(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRenderDoc(t *testing.T) {
	cfg := setup(t)
	g := newTestGenerator(cfg, &bytes.Buffer{})

	got, err := g.RenderDoc("agents")
	require.NoError(t, err)
	assert.Equal(t, "# Agents (1)\n- reviewer: Reviews\n", got)

	_, err = g.RenderDoc("missing")
	require.ErrorIs(t, err, ErrUnknownDoc)
	assert.NoDirExists(t, cfg.Output)
}

func TestWithEngine(t *testing.T) {
	cfg := setup(t)
	writeFile(t, filepath.Join(cfg.Templates, "agents.md.j2"), "{{ marketplace.name|upper }}")

	engine := tmpl.NewEngine(tmpl.WithFilter("upper", func(v tmpl.Value, _ []string) tmpl.Value {
		return tmpl.String(strings.ToUpper(v.String()))
	}))
	g := New(cfg, WithEngine(engine), WithLogger(slog.New(slog.DiscardHandler)))

	got, err := g.RenderDoc("agents")
	require.NoError(t, err)
	assert.Equal(t, "DEMO", got)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		n        int
		expected string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"longer", "abcdef", 5, "abcde..."},
		{"runes", "文档生成器", 2, "文档..."},
		{"zero", "abc", 0, "..."},
		{"negative disables", "abc", -1, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Preview(tt.content, tt.n))
		})
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "page.md.j2")
	ctxPath := filepath.Join(dir, "ctx.yaml")
	writeFile(t, tplPath, "{% for k, v in env.items() %}{{ k }}={{ v }}\n{% endfor %}")
	writeFile(t, ctxPath, "env:\n  b: 2\n  a: 1\n")

	got, err := RenderFile(tplPath, ctxPath)
	require.NoError(t, err)
	assert.Equal(t, "b=2\na=1\n", got)

	_, err = RenderFile(filepath.Join(dir, "none.j2"), ctxPath)
	require.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = RenderFile(tplPath, filepath.Join(dir, "none.yaml"))
	require.Error(t, err)
}

func TestWatch_Regenerates(t *testing.T) {
	if testing.Short() {
		t.Skip("watch test uses the filesystem notifier")
	}

	cfg := setup(t)
	cfg.Docs = []string{"agents"}
	g := newTestGenerator(cfg, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Watch(ctx, Options{}) }()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(cfg.Output, "agents.md"))
		return err == nil && strings.HasPrefix(string(data), "# Agents (1)")
	}, 5*time.Second, 50*time.Millisecond)

	// 监听可能晚于首次生成完成才建立，每轮重写模板直到输出更新
	tplPath := filepath.Join(cfg.Templates, "agents.md.j2")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(cfg.Output, "agents.md"))
		if err == nil && string(data) == "updated demo\n" {
			return true
		}
		writeFile(t, tplPath, "updated {{ marketplace.name }}\n")
		return false
	}, 10*time.Second, 2*watchDebounce)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchPaths(t *testing.T) {
	cfg := setup(t)
	g := newTestGenerator(cfg, &bytes.Buffer{})

	assert.Equal(t, []string{
		cfg.Marketplace,
		filepath.Join(cfg.Templates, "agents.md.j2"),
		filepath.Join(cfg.Templates, "plugins.md.j2"),
	}, g.watchPaths(Options{}))

	assert.Len(t, g.watchPaths(Options{Only: "plugins"}), 2)
}
