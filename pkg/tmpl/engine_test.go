package tmpl_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Interpolation(t *testing.T) {
	ctx := tmpl.NewMap().
		Set("name", tmpl.String("my-plugin_name")).
		Set("tags", tmpl.List{tmpl.String("a"), tmpl.String("b"), tmpl.String("c")}).
		Set("nums", tmpl.List{tmpl.Int(1), tmpl.Int(2), tmpl.Int(3)}).
		Set("count", tmpl.Int(5)).
		Set("word", tmpl.String("héllo")).
		Set("nested", tmpl.NewMap().Set("inner", tmpl.NewMap().Set("leaf", tmpl.String("deep"))))

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain path", "{{ name }}", "my-plugin_name"},
		{"nested path", "{{ nested.inner.leaf }}", "deep"},
		{"no spaces", "{{nested.inner.leaf}}", "deep"},
		{"missing root", "a{{ missing }}b", "ab"},
		{"missing segment", "a{{ nested.nope.leaf }}b", "ab"},
		{"step into scalar", "a{{ name.x }}b", "ab"},
		{"join", "{{ tags|join(', ') }}", "a, b, c"},
		{"join double quotes", `{{ tags|join(" ") }}`, "a b c"},
		{"join numbers", "{{ nums|join(',') }}", "1,2,3"},
		{"join non sequence", "{{ name|join('.') }}", "my-plugin_name"},
		{"join separator outside expression charset", "a{{ tags|join('/') }}b", "ab"},
		{"title with parens", "{{ name|title() }}", "my-plugin_name"},
		{"title", "{{ name|title }}", "My Plugin Name"},
		{"title spaces around pipe", "{{ name | title }}", "My Plugin Name"},
		{"length list", "{{ nums|length }}", "3"},
		{"length scalar", "{{ count|length }}", "0"},
		{"length runes", "{{ word|length }}", "5"},
		{"length missing", "{{ missing|length }}", "0"},
		{"unknown filter", "{{ name|upper }}", "my-plugin_name"},
		{"filter chain", "{{ name|title|length }}", "14"},
		{"list form", "{{ tags }}", "['a', 'b', 'c']"},
		{"malformed expression", "a{{ x + y }}b", "ab"},
		{"malformed index", "a{{ tags[0] }}b", "ab"},
		{"empty braces", "a{{}}b", "ab"},
		{"unterminated", "a {{ name", "a {{ name"},
		{"output after unclosed tag", "50{% off {{ name }}", "50{% off my-plugin_name"},
		{"nested opener", "{{ a {{ name }}", "{{ a my-plugin_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.Render(tt.template, ctx))
		})
	}
}

func TestRender_Loops(t *testing.T) {
	ctx := tmpl.NewMap().
		Set("m", tmpl.NewMap().Set("x", tmpl.Int(1)).Set("y", tmpl.Int(2))).
		Set("items", tmpl.List{
			tmpl.NewMap().Set("name", tmpl.String("a")),
			tmpl.NewMap().Set("name", tmpl.String("b")),
		}).
		Set("xs", tmpl.List{tmpl.String("a"), tmpl.String("b")}).
		Set("groups", tmpl.NewMap().
			Set("g1", tmpl.List{tmpl.Int(1), tmpl.Int(2)}).
			Set("g2", tmpl.List{tmpl.Int(3)})).
		Set("scalar", tmpl.Int(7))

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"items", "{% for k, v in m.items() %}{{ k }}={{ v }};{% endfor %}", "x=1;y=2;"},
		{"items compact comma", "{% for k,v in m.items() %}{{ k }}{% endfor %}", "xy"},
		{"keys", "{% for k in m.keys() %}{{ k }},{% endfor %}", "x,y,"},
		{"plain list of maps", "{% for item in items %}{{ item.name }}-{% endfor %}", "a-b-"},
		{"plain map values", "{% for v in m %}{{ v }}{% endfor %}", "12"},
		{"plain over scalar", "[{% for v in scalar %}{{ v }}{% endfor %}]", "[]"},
		{"plain over missing", "[{% for v in nope %}{{ v }}{% endfor %}]", "[]"},
		{"items over list", "[{% for k, v in xs.items() %}{{ k }}{% endfor %}]", "[]"},
		{"keys over list", "[{% for k in xs.keys() %}{{ k }}{% endfor %}]", "[]"},
		{
			"whitespace preserved",
			"{% for x in xs %}\n- {{ x }}\n{% endfor %}",
			"\n- a\n\n- b\n",
		},
		{
			"nested loops",
			"{% for k, v in groups.items() %}{% for n in v %}{{ k }}:{{ n }} {% endfor %}{% endfor %}",
			"g1:1 g1:2 g2:3 ",
		},
		{
			"outer variable visible in inner loop",
			"{% for x in xs %}{% for item in items %}{{ x }}{{ item.name }}{% endfor %},{% endfor %}",
			"aaab,babb,",
		},
		{"else inside loop dropped", "{% for x in xs %}{{ x }}{% else %}!{% endfor %}", "a!b!"},
		{"endif inside loop dropped", "{% for x in xs %}{{ x }}{% endif %}{% endfor %}", "ab"},
		{"unclosed loop", "{% for x in xs %}{{ x }}", ""},
		{"unicode loop variable", "{% for é in xs %}{{ é }}{% endfor %}", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.Render(tt.template, ctx))
		})
	}
}

func TestRender_Conditionals(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]any
		want     string
	}{
		{"equal strings", "{% if a == b %}MATCH{% endif %}", map[string]any{"a": "x", "b": "x"}, "MATCH"},
		{"unequal strings", "{% if a == b %}MATCH{% endif %}", map[string]any{"a": "x", "b": "y"}, ""},
		{"int equals float", "{% if a == b %}MATCH{% endif %}", map[string]any{"a": 1, "b": 1.0}, "MATCH"},
		{"bool equals one", "{% if a == b %}MATCH{% endif %}", map[string]any{"a": true, "b": 1}, "MATCH"},
		{"string not number", "{% if a == b %}MATCH{% endif %}", map[string]any{"a": "1", "b": 1}, ""},
		{"missing equals empty", "{% if a == b %}MATCH{% endif %}", map[string]any{"b": ""}, "MATCH"},
		{"equality with else matched", "{% if a == b %}X{% else %}Y{% endif %}", map[string]any{"a": 1, "b": 1}, "XY"},
		{"equality with else unmatched", "{% if a == b %}X{% else %}Y{% endif %}", map[string]any{"a": 1, "b": 2}, ""},
		{"else true branch", "{% if a %}T{% else %}F{% endif %}", map[string]any{"a": "x"}, "T"},
		{"else false branch", "{% if a %}T{% else %}F{% endif %}", map[string]any{"a": ""}, "F"},
		{"simple true", "[{% if a %}T{% endif %}]", map[string]any{"a": []int{1}}, "[T]"},
		{"simple false", "[{% if a %}T{% endif %}]", map[string]any{"a": []int{}}, "[]"},
		{"unclosed if keeps body", "{% if a %}X", map[string]any{"a": false}, "X"},
		{"unclosed else keeps both", "{% if a %}X{% else %}Y", map[string]any{"a": false}, "XY"},
		{"nested conditionals", "{% if a %}{% if b %}AB{% else %}A{% endif %}{% else %}-{% endif %}", map[string]any{"a": 1, "b": 0}, "A"},
		{"dangling endif", "a{% endif %}b", nil, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.Render(tt.template, tt.data))
		})
	}
}

func TestRender_Truthiness(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"zero", 0, "F"},
		{"zero float", 0.0, "F"},
		{"empty string", "", "F"},
		{"false", false, "F"},
		{"nil", nil, "F"},
		{"empty list", []string{}, "F"},
		{"empty map", map[string]any{}, "F"},
		{"string", "x", "T"},
		{"number", 3, "T"},
		{"negative", -1, "T"},
		{"true", true, "T"},
		{"list", []string{"a"}, "T"},
		{"map", map[string]any{"k": 1}, "T"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tmpl.Render("{% if v %}T{% else %}F{% endif %}", map[string]any{"v": tt.value})
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("absent", func(t *testing.T) {
		assert.Equal(t, "F", tmpl.Render("{% if v %}T{% else %}F{% endif %}", nil))
	})
}

func TestRender_Idempotence(t *testing.T) {
	tests := []string{
		"",
		"plain text",
		"line one\nline two\n\n",
		"{ single } braces }} and %} closers",
		"unicode: 你好 ✓",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, text, tmpl.Render(text, map[string]any{"x": 1}))
		})
	}
}

func TestRender_Isolation(t *testing.T) {
	data := map[string]any{"xs": []int{1, 2}}
	assert.Equal(t, "12[]", tmpl.Render("{% for x in xs %}{{ x }}{% endfor %}[{{ x }}]", data))

	data["x"] = "outer"
	assert.Equal(t, "12outer", tmpl.Render("{% for x in xs %}{{ x }}{% endfor %}{{ x }}", data))

	m := tmpl.NewMap().Set("k", tmpl.String("v"))
	got := tmpl.Render("{% for k, v in m.items() %}{{ k }}{% endfor %}[{{ k }}{{ v }}]", map[string]any{"m": m})
	assert.Equal(t, "k[]", got)
}

func TestRender_Nesting(t *testing.T) {
	data := map[string]any{
		"show": true,
		"xs":   []int{1, 2},
		"ps": []map[string]any{
			{"name": "a", "on": true},
			{"name": "b", "on": false},
			{"name": "c", "on": true},
		},
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			"conditional inside loop",
			"{% for p in ps %}{% if p.on %}{{ p.name }}{% else %}-{% endif %}{% endfor %}",
			"a-c",
		},
		{
			"loop inside conditional",
			"{% if show %}{% for x in xs %}{{ x }}{% endfor %}{% endif %}",
			"12",
		},
		{
			"equality against loop variable",
			"{% for p in ps %}{% if p.name == ps %}!{% endif %}{% if p.on == show %}{{ p.name }}{% endif %}{% endfor %}",
			"ac",
		},
		{
			"endfor closes loop across open conditional",
			"{% for x in xs %}{% if show %}{{ x }}{% endfor %}",
			"12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.Render(tt.template, data))
		})
	}
}

func TestRender_UnsupportedDirectives(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"set dropped", "a{% set x = 1 %}b", "ab"},
		{"macro dropped", "a{% macro m() %}b{% endmacro %}c", "abc"},
		{"multi line kept", "a{% foo\nbar %}b", "a{% foo\nbar %}b"},
		{"unterminated tag", "a {% if x", "a {% if x"},
		{"directive after unclosed output", "Use {{ in text {% if a %}A{% endif %}", "Use {{ in text A"},
		{"directive after multi line opener", "{% foo\n{% if a %}A{% endif %}", "{% foo\nA"},
		{"directive after unclosed tag", "x {% y {% if a %}A{% endif %}", "x {% y A"},
		{"if with boolean logic", "[{% if a and b %}X{% endif %}]", "[X]"},
		{"loop with filter header", "[{% for x in xs|sort %}{{ x }}{% endfor %}]", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.Render(tt.template, map[string]any{"a": 1, "xs": []int{1}}))
		})
	}
}

func TestRender_NoRescan(t *testing.T) {
	data := map[string]any{"a": "{{ b }}", "b": "x"}
	assert.Equal(t, "{{ b }}", tmpl.Render("{{ a }}", data))

	data = map[string]any{"xs": []string{"{% if b %}", "y"}, "b": true}
	assert.Equal(t, "{% if b %}y", tmpl.Render("{% for x in xs %}{{ x }}{% endfor %}", data))
}

func TestRender_ValueForms(t *testing.T) {
	tests := []struct {
		name  string
		value tmpl.Value
		want  string
	}{
		{"true", tmpl.Bool(true), "True"},
		{"false", tmpl.Bool(false), "False"},
		{"none", tmpl.None{}, ""},
		{"undefined", tmpl.Undefined{}, ""},
		{"integral float", tmpl.Float(2), "2.0"},
		{"float", tmpl.Float(0.1), "0.1"},
		{"int", tmpl.Int(-42), "-42"},
		{"list", tmpl.List{tmpl.String("a"), tmpl.Int(1), tmpl.None{}, tmpl.Bool(true)}, "['a', 1, None, True]"},
		{"map", tmpl.NewMap().Set("k", tmpl.String("v")).Set("n", tmpl.Int(1)), "{'k': 'v', 'n': 1}"},
		{"quote", tmpl.List{tmpl.String("it's")}, `["it's"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.Render("{{ v }}", tmpl.NewMap().Set("v", tt.value)))
		})
	}
}

func TestRender_GoData(t *testing.T) {
	type agent struct {
		Name        string `json:"name"`
		Description string `tmpl:"desc"`
		Model       string
		hidden      string
	}

	data := map[string]any{
		"m":      map[string]int{"b": 1, "a": 2},
		"agents": []agent{{Name: "x", Description: "d", Model: "opus", hidden: "h"}},
	}

	assert.Equal(t, "a=2;b=1;", tmpl.Render("{% for k, v in m.items() %}{{ k }}={{ v }};{% endfor %}", data))
	assert.Equal(t, "x d opus []", tmpl.Render(
		"{% for a in agents %}{{ a.name }} {{ a.desc }} {{ a.Model }} [{{ a.hidden }}]{% endfor %}", data))
}

// ═══════════════════════════════════════════════════════════════════════════
// Engine
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_WithFilter(t *testing.T) {
	e := tmpl.NewEngine(
		tmpl.WithFilter("upper", func(v tmpl.Value, _ []string) tmpl.Value {
			return tmpl.String(fmt.Sprintf("%s!", v))
		}),
		tmpl.WithFilter("length", func(tmpl.Value, []string) tmpl.Value {
			return tmpl.Int(-1)
		}),
	)

	data := map[string]any{"name": "x"}
	assert.Equal(t, "x!", e.Render("{{ name|upper }}", data))
	assert.Equal(t, "-1", e.Render("{{ name|length }}", data))

	// 默认引擎不受影响
	assert.Equal(t, "x", tmpl.Render("{{ name|upper }}", data))
	assert.Equal(t, "1", tmpl.Render("{{ name|length }}", data))
}

func TestEngine_Cache(t *testing.T) {
	e := tmpl.NewEngine()
	t1 := e.Parse("{{ a }}")
	t2 := e.Parse("{{ a }}")
	assert.Same(t, t1, t2)

	e.ClearCache()
	t3 := e.Parse("{{ a }}")
	assert.NotSame(t, t1, t3)
	assert.Equal(t, t1.Execute(map[string]any{"a": 1}), t3.Execute(map[string]any{"a": 1}))

	nc := tmpl.NewEngine(tmpl.WithoutCache())
	assert.NotSame(t, nc.Parse("x"), nc.Parse("x"))
}

func TestEngine_Concurrent(t *testing.T) {
	e := tmpl.NewEngine()
	text := "{% for x in xs %}{% if x == n %}[{{ x }}]{% endif %}{% if x %}{{ x }}{% endif %}{% endfor %}"

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Render(text, map[string]any{"xs": []int{0, 1, 2}, "n": i % 3})
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		require.Equal(t, []string{"[0]12", "[1]12", "1[2]2"}[i%3], got, "goroutine %d", i)
	}
}

func TestTemplate_ExecuteReusable(t *testing.T) {
	tpl := tmpl.Parse("{% for k, v in m.items() %}{{ k }}{{ v }}{% endfor %}")
	assert.Equal(t, "a1", tpl.Execute(map[string]any{"m": map[string]int{"a": 1}}))
	assert.Equal(t, "b2", tpl.Execute(map[string]any{"m": map[string]int{"b": 2}}))
	assert.Equal(t, "", tpl.Execute(nil))
}

func TestEngine_WithLiteralArgs(t *testing.T) {
	data := map[string]any{"tags": []string{"a", "b"}}

	assert.Equal(t, "", tmpl.NewEngine().Render("{{ tags|join('/') }}", data))
	assert.Equal(t, "a/b", tmpl.NewEngine(tmpl.WithLiteralArgs()).Render("{{ tags|join('/') }}", data))
	assert.Equal(t, "a - b", tmpl.NewEngine(tmpl.WithLiteralArgs()).Render(`{{ tags|join(" - ") }}`, data))
	assert.Equal(t, "", tmpl.NewEngine(tmpl.WithLiteralArgs()).Render("{{ tags + 1 }}", data))
}
