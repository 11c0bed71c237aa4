package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/praetorian-inc/gosek/pkg/types"
	"gopkg.in/yaml.v3"
)

// Format is a template file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the format implied by a file name, or "" when the
// extension is not a template extension.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return ""
	}
}

// record is the on-disk shape of one template, shared by all formats.
type record struct {
	ID          string   `json:"id" yaml:"id" toml:"id"`
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Pattern     string   `json:"pattern" yaml:"pattern" toml:"pattern"`
	Flags       []string `json:"flags,omitempty" yaml:"flags,omitempty" toml:"flags,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty" toml:"keywords,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	References  []string `json:"references,omitempty" yaml:"references,omitempty" toml:"references,omitempty"`

	Examples         []string `json:"examples,omitempty" yaml:"examples,omitempty" toml:"examples,omitempty"`
	NegativeExamples []string `json:"negative_examples,omitempty" yaml:"negative_examples,omitempty" toml:"negative_examples,omitempty"`
}

// document is a template file whose top level is a table. "rules" is
// accepted as a synonym for "patterns".
type document struct {
	Patterns []record `json:"patterns" yaml:"patterns" toml:"patterns"`
	Rules    []record `json:"rules" yaml:"rules" toml:"rules"`
}

func (d document) records() []record {
	return append(d.Patterns, d.Rules...)
}

// Parse decodes a template file. name is used to pick the format and is
// recorded as each template's Source.
func Parse(name string, data []byte) ([]types.Template, error) {
	format := FormatOf(name)

	var recs []record
	var err error
	switch format {
	case FormatJSON:
		recs, err = parseJSON(data)
	case FormatYAML:
		recs, err = parseYAML(data)
	case FormatTOML:
		recs, err = parseTOML(data)
	default:
		err = fmt.Errorf("unsupported template file extension %q", path.Ext(name))
	}
	if err != nil {
		return nil, &types.ConfigError{Source: name, Err: err}
	}

	out := make([]types.Template, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.Template{
			ID:          r.ID,
			Name:        r.Name,
			Pattern:     r.Pattern,
			Flags:       r.Flags,
			Keywords:    r.Keywords,
			Description: r.Description,
			References:  r.References,
			Source:      name,

			Examples:         r.Examples,
			NegativeExamples: r.NegativeExamples,
		})
	}
	return out, nil
}

func parseJSON(data []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var recs []record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return recs, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return doc.records(), nil
}

func parseYAML(data []byte) ([]record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var recs []record
		if err := root.Decode(&recs); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return recs, nil
	}
	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc.records(), nil
}

func parseTOML(data []byte) ([]record, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return doc.records(), nil
}
