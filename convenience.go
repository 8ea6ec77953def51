// File: lixenwraith/flatconf/convenience.go
package flatconf

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects the rendering used by Dump
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name, case-insensitively
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatTOML, FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported dump format %q", name)
	}
}

// MustParse is like Parse but panics on error
func MustParse(configPath, schemaPath string) *Tree {
	tree, err := Parse(configPath, schemaPath)
	if err != nil {
		panic(fmt.Sprintf("config parse failed: %v", err))
	}
	return tree
}

// Require checks that every given dotted path resolves to a value
func (t *Tree) Require(paths ...string) error {
	var missing []string
	for _, path := range paths {
		if _, ok := t.Lookup(path); !ok {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required configuration: %s", ErrPathNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// Debug returns a formatted string showing every leaf path with its kind and value
func (t *Tree) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	_ = t.Walk(func(path string, v Value) error {
		fmt.Fprintf(&b, "  %s (%s): %s\n", path, v.Kind(), v)
		return nil
	})
	return b.String()
}

// Dump renders the tree to w for inspection. YAML keeps insertion order;
// TOML and JSON order keys alphabetically. JSON has no spelling for
// infinities or NaN, so those numbers are written as the strings "+Inf",
// "-Inf" and "NaN".
func (t *Tree) Dump(w io.Writer, format Format) error {
	switch format {
	case FormatTOML:
		encoder := toml.NewEncoder(w)
		if err := encoder.Encode(t.ToMap()); err != nil {
			return fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
		return nil

	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(t.yamlNode()); err != nil {
			return fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		return encoder.Close()

	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(t.jsonMap()); err != nil {
			return fmt.Errorf("failed to marshal config data to JSON: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported dump format %q", format)
	}
}

// yamlNode builds an ordered mapping node
func (t *Tree) yamlNode() *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range t.All() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		node.Content = append(node.Content, key, v.yamlNode())
	}
	return node
}

// jsonMap is ToMap with non-finite numbers spelled as strings
func (t *Tree) jsonMap() map[string]any {
	m := make(map[string]any, t.Len())
	for k, v := range t.All() {
		switch {
		case v.kind == KindTable:
			m[k] = v.table.jsonMap()
		case v.kind == KindNumber && (math.IsInf(v.num, 0) || math.IsNaN(v.num)):
			m[k] = strconv.FormatFloat(v.num, 'g', -1, 64)
		default:
			m[k] = v.Interface()
		}
	}
	return m
}

func (v Value) yamlNode() *yaml.Node {
	switch v.kind {
	case KindTable:
		return v.table.yamlNode()
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindNumber:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: yamlFloat(v.num)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
	}
}

// yamlFloat spells special values the way YAML 1.2 expects
func yamlFloat(f float64) string {
	switch s := strconv.FormatFloat(f, 'g', -1, 64); s {
	case "+Inf":
		return ".inf"
	case "-Inf":
		return "-.inf"
	case "NaN":
		return ".nan"
	default:
		return s
	}
}
