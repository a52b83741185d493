package tmpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Decode 将 JSON 或 YAML 文档解码为 Value，映射保持文档中的键顺序。
//
// 合法 JSON 按 JSON 规则解码 (整数为 Int，带小数点或指数的为 Float)，
// 其余内容按 YAML 解码。空文档返回 None。
func Decode(data []byte) (Value, error) {
	if json.Valid(data) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		return decodeJSON(dec)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return fromNode(&doc)
}

// ═══════════════════════════════════════════════════════════════════════════
// JSON
// ═══════════════════════════════════════════════════════════════════════════

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return None{}, nil
		}
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return jsonValue(dec, tok)
}

func jsonValue(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return None{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return jsonNumber(t), nil
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("decode json: %w", err)
				}
				key, _ := kt.(string)
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("decode json: %w", err)
			}
			return m, nil
		case '[':
			l := List{}
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				l = append(l, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("decode json: %w", err)
			}
			return l, nil
		}
	}
	return nil, fmt.Errorf("decode json: unexpected token %v", tok)
}

func jsonNumber(n json.Number) Value {
	if !strings.ContainsAny(string(n), ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	f, _ := n.Float64()
	return Float(f)
}

// ═══════════════════════════════════════════════════════════════════════════
// YAML
// ═══════════════════════════════════════════════════════════════════════════

func fromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return None{}, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.SequenceNode:
		l := make(List, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case yaml.MappingNode:
		m := NewMap()
		if err := mergeMapping(m, n); err != nil {
			return nil, err
		}
		return m, nil
	case yaml.ScalarNode:
		return fromScalar(n)
	case 0:
		return None{}, nil
	}
	return nil, fmt.Errorf("decode yaml: unsupported node kind %d at line %d", n.Kind, n.Line)
}

func mergeMapping(m *Map, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.ShortTag() == "!!merge" {
			if err := mergeInto(m, v); err != nil {
				return err
			}
			continue
		}
		val, err := fromNode(v)
		if err != nil {
			return err
		}
		m.Set(k.Value, val)
	}
	return nil
}

// mergeInto 处理 "<<: *anchor"，已存在的键不被覆盖。
func mergeInto(m *Map, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		src := NewMap()
		if err := mergeMapping(src, n); err != nil {
			return err
		}
		src.Range(func(k string, v Value) bool {
			if _, ok := m.Get(k); !ok {
				m.Set(k, v)
			}
			return true
		})
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if err := mergeInto(m, c); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("decode yaml: invalid merge at line %d", n.Line)
	}
	return nil
}

func fromScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return None{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("decode yaml: line %d: %w", n.Line, err)
		}
		return Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return Float(f), nil
	}
	return String(n.Value), nil
}
