package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is a record type declared in YAML.
type Definition struct {
	// Type is the type name records are registered under.
	Type string `yaml:"type"`

	// Extends names a parent type whose fields and slices are inherited.
	Extends string `yaml:"extends,omitempty"`

	// Strict rejects access to undeclared fields.
	Strict bool `yaml:"strict,omitempty"`

	// Key names the field that identifies a record in storage.
	Key string `yaml:"key,omitempty"`

	// Fields in document order.
	Fields []Field `yaml:"-"`

	// Slices maps slice names to slice specs ("*" or nested field maps).
	Slices map[string]any `yaml:"slices,omitempty"`

	// Source is the file the definition was read from, if any.
	Source string `yaml:"-"`
}

// UnmarshalYAML decodes the definition keeping the order of "fields".
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	type plain Definition
	var raw struct {
		plain  `yaml:",inline"`
		Fields yaml.Node `yaml:"fields"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*d = Definition(raw.plain)

	if raw.Fields.Kind == 0 {
		return nil
	}
	if raw.Fields.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", raw.Fields.Line)
	}
	for i := 0; i+1 < len(raw.Fields.Content); i += 2 {
		keyNode, valNode := raw.Fields.Content[i], raw.Fields.Content[i+1]
		var f Field
		if err := valNode.Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", keyNode.Value, err)
		}
		f.Name = keyNode.Value
		d.Fields = append(d.Fields, f)
	}
	return nil
}

// Field looks up a declared field by name.
func (d Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// References returns the type names this definition depends on: its parent
// and the targets of its record fields.
func (d Definition) References() []string {
	var refs []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && name != d.Type && !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	add(d.Extends)
	for _, f := range d.Fields {
		if f.Type == TypeRecord {
			add(f.To)
		}
	}
	return refs
}
