// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package methods holds the ordered table of dithering methods to compare.
// Tables load from YAML with their file order intact, since that order is
// the processing order of a batch.
package methods

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dithercmp/pkg/types"
)

// methodsKey is the top-level YAML key holding the method mapping.
const methodsKey = "methods"

// ErrNoMethods is returned when a YAML document has no methods key.
var ErrNoMethods = errors.New("no methods table")

// Table is an ordered list of methods. It is not modified after loading.
type Table []types.Method

// Default returns the built-in comparison table.
func Default() Table {
	return Table{
		{Name: "ordered_o3x3", Args: []string{"-ordered-dither", "o3x3"}},
		{Name: "ordered_h4x4a", Args: []string{"-ordered-dither", "h4x4a"}},
	}
}

// Names returns the method names in table order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, m := range t {
		names[i] = m.Name
	}
	return names
}

// Lookup returns the method with the given name.
func (t Table) Lookup(name string) (types.Method, bool) {
	for _, m := range t {
		if m.Name == name {
			return m, true
		}
	}
	return types.Method{}, false
}

// Select returns the methods named in names, keeping table order. Unknown
// names are an error.
func (t Table) Select(names []string) (Table, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := t.Lookup(n); !ok {
			return nil, fmt.Errorf("unknown method %q (known: %s)", n, strings.Join(t.Names(), ", "))
		}
		want[n] = true
	}

	var out Table
	for _, m := range t {
		if want[m.Name] {
			out = append(out, m)
		}
	}
	return out, nil
}

// Validate checks that the table can drive a batch: at least one method,
// unique names usable as file stems, and at least one flag per method.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("method table is empty")
	}
	seen := make(map[string]bool, len(t))
	for i, m := range t {
		if err := validateName(m.Name); err != nil {
			return fmt.Errorf("method %d: %w", i+1, err)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate method %q", m.Name)
		}
		seen[m.Name] = true
		if len(m.Args) == 0 {
			return fmt.Errorf("method %q has no arguments", m.Name)
		}
	}
	return nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("empty method name")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("method name %q contains a path separator", name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("method name %q contains \"..\"", name)
	}
	return nil
}

// LoadFile reads a method table from the YAML file at path.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading methods file %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing methods file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML document of the form
//
//	methods:
//	  ordered_o3x3: ["-ordered-dither", "o3x3"]
//	  ordered_h4x4a: ["-ordered-dither", "h4x4a"]
//
// Methods are returned in document order. Other top-level keys are
// ignored so the table can live in the main config file.
func Parse(data []byte) (Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrNoMethods
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level is not a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != methodsKey {
			continue
		}
		return parseMapping(root.Content[i+1])
	}
	return nil, ErrNoMethods
}

func parseMapping(node *yaml.Node) (Table, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %s must be a mapping of name to argument list", node.Line, methodsKey)
	}

	t := make(Table, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		var args []string
		switch val.Kind {
		case yaml.SequenceNode:
			if err := val.Decode(&args); err != nil {
				return nil, fmt.Errorf("line %d: method %q: %w", val.Line, key.Value, err)
			}
		case yaml.ScalarNode:
			// "ordered_o3x3: -ordered-dither o3x3"
			args = strings.Fields(val.Value)
		default:
			return nil, fmt.Errorf("line %d: method %q: arguments must be a list or a string", val.Line, key.Value)
		}

		t = append(t, types.Method{Name: key.Value, Args: args})
	}
	return t, nil
}
