package catalog

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
)

// DefaultCategory 未声明 category 的插件归入此分类
const DefaultCategory = "general"

// TimeLayout now 字段的格式
const TimeLayout = "2006-01-02 15:04:05"

// Agent 插件中的 agent
type Agent struct {
	Plugin      string `json:"plugin"`
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description"`
	Model       string `json:"model"`
}

// Command 插件中的 slash command
type Command struct {
	Plugin      string `json:"plugin"`
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description"`
}

// Skill 插件中的 skill
type Skill struct {
	Plugin      string `json:"plugin"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Stats 汇总计数
type Stats struct {
	TotalPlugins  int `json:"total_plugins"`
	TotalAgents   int `json:"total_agents"`
	TotalCommands int `json:"total_commands"`
	TotalSkills   int `json:"total_skills"`
}

// Context 文档模板的上下文
type Context struct {
	Marketplace       *tmpl.Map
	Now               time.Time
	PluginsByCategory *tmpl.Map // category → List of plugin objects, 按首次出现排序
	Agents            []Agent
	Commands          []Command
	Skills            []Skill
	Stats             Stats
}

// Value 转换为模板数据
func (c *Context) Value() *tmpl.Map {
	return tmpl.NewMap().
		Set("marketplace", c.Marketplace).
		Set("now", tmpl.String(c.Now.Format(TimeLayout))).
		Set("plugins_by_category", c.PluginsByCategory).
		Set("all_agents", tmpl.FromGo(c.Agents)).
		Set("all_skills", tmpl.FromGo(c.Skills)).
		Set("all_commands", tmpl.FromGo(c.Commands)).
		Set("stats", tmpl.FromGo(c.Stats))
}

// ═══════════════════════════════════════════════════════════════════════════
// Builder
// ═══════════════════════════════════════════════════════════════════════════

// Builder 根据 marketplace 与插件目录中的 markdown 构建上下文。
type Builder struct {
	pluginsDir string
	logger     *slog.Logger
	now        func() time.Time
}

// BuilderOption Builder 选项
type BuilderOption func(*Builder)

// WithLogger 设置日志记录器
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock 设置时间来源
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder 创建 Builder，pluginsDir 为插件根目录 (每个插件位于 <pluginsDir>/<name>)。
func NewBuilder(pluginsDir string, opts ...BuilderOption) *Builder {
	b := &Builder{
		pluginsDir: pluginsDir,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建上下文。marketplace 没有 plugins 列表时返回只含基础字段的上下文。
func (b *Builder) Build(marketplace *tmpl.Map) *Context {
	if marketplace == nil {
		marketplace = tmpl.NewMap()
	}
	c := &Context{
		Marketplace:       marketplace,
		Now:               b.now(),
		PluginsByCategory: tmpl.NewMap(),
		Agents:            []Agent{},
		Commands:          []Command{},
		Skills:            []Skill{},
	}

	v, _ := marketplace.Get("plugins")
	plugins, ok := v.(tmpl.List)
	if !ok {
		if v != nil {
			b.logger.Warn("marketplace plugins is not a list, ignoring", "type", typeName(v))
		}
		return c
	}
	c.Stats.TotalPlugins = len(plugins)

	for _, p := range plugins {
		plugin, ok := p.(*tmpl.Map)
		if !ok {
			b.logger.Warn("skipping malformed plugin entry", "value", p.String())
			continue
		}
		b.addPlugin(c, plugin)
	}

	b.logger.Debug("context built",
		"plugins", c.Stats.TotalPlugins,
		"agents", c.Stats.TotalAgents,
		"commands", c.Stats.TotalCommands,
		"skills", c.Stats.TotalSkills,
	)
	return c
}

func (b *Builder) addPlugin(c *Context, plugin *tmpl.Map) {
	category := DefaultCategory
	if v, ok := plugin.Get("category"); ok {
		category = v.String()
	}
	group, _ := c.PluginsByCategory.Get(category)
	list, _ := group.(tmpl.List)
	c.PluginsByCategory.Set(category, append(list, plugin))

	name := ""
	if v, ok := plugin.Get("name"); ok {
		name = v.String()
	}
	dir := filepath.Join(b.pluginsDir, name)

	if entries, ok := entryList(plugin, "agents"); ok {
		for _, entry := range b.paths(entries, name, "agents") {
			file := strings.ReplaceAll(entry, "./agents/", "")
			fm := b.frontMatter(filepath.Join(dir, trimEntry(entry)))
			c.Agents = append(c.Agents, Agent{
				Plugin:      name,
				Name:        lookup(fm, "name", strings.ReplaceAll(file, ".md", "")),
				File:        file,
				Description: fm["description"],
				Model:       fm["model"],
			})
		}
		c.Stats.TotalAgents += len(entries)
	}

	if entries, ok := entryList(plugin, "commands"); ok {
		for _, entry := range b.paths(entries, name, "commands") {
			file := strings.ReplaceAll(entry, "./commands/", "")
			fm := b.frontMatter(filepath.Join(dir, trimEntry(entry)))
			c.Commands = append(c.Commands, Command{
				Plugin:      name,
				Name:        lookup(fm, "name", strings.ReplaceAll(file, ".md", "")),
				File:        file,
				Description: fm["description"],
			})
		}
		c.Stats.TotalCommands += len(entries)
	}

	if entries, ok := entryList(plugin, "skills"); ok {
		for _, entry := range b.paths(entries, name, "skills") {
			skill := strings.ReplaceAll(entry, "./skills/", "")
			fm := b.frontMatter(filepath.Join(dir, trimEntry(entry), "SKILL.md"))
			c.Skills = append(c.Skills, Skill{
				Plugin:      name,
				Name:        lookup(fm, "name", skill),
				Path:        skill,
				Description: fm["description"],
			})
		}
		c.Stats.TotalSkills += len(entries)
	}
}

// paths 取出列表中的字符串路径，跳过其他类型的元素。
func (b *Builder) paths(entries tmpl.List, plugin, kind string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		s, ok := e.(tmpl.String)
		if !ok {
			b.logger.Warn("skipping non-string entry", "plugin", plugin, "kind", kind, "value", e.String())
			continue
		}
		out = append(out, string(s))
	}
	return out
}

func (b *Builder) frontMatter(path string) map[string]string {
	fm, err := ReadFrontMatter(path)
	if err != nil {
		b.logger.Warn("could not parse front matter", "path", path, "error", err)
	}
	return fm
}

func entryList(plugin *tmpl.Map, key string) (tmpl.List, bool) {
	v, ok := plugin.Get(key)
	if !ok {
		return nil, false
	}
	list, ok := v.(tmpl.List)
	return list, ok
}

// trimEntry 去掉路径开头的 "." 与 "/" 字符
func trimEntry(p string) string {
	return strings.TrimLeft(p, "./")
}

func lookup(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func typeName(v tmpl.Value) string {
	switch v.(type) {
	case *tmpl.Map:
		return "object"
	case tmpl.List:
		return "list"
	case tmpl.None:
		return "null"
	}
	return "scalar"
}
