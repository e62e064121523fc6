package schema

import (
	"fmt"
)

// Field declares one field of a YAML type definition.
type Field struct {
	// Name is the field name, taken from the mapping key.
	Name string `yaml:"-"`

	// Type is the field type. See the Type constants.
	Type string `yaml:"type"`

	// Required marks fields that fail validation while empty.
	Required bool `yaml:"required,omitempty"`

	// Default value, or the default payload for collection fields.
	Default any `yaml:"default,omitempty"`

	// Collection wraps the type in a "sequence" or "mapping".
	Collection CollectionKind `yaml:"collection,omitempty"`

	// To names the nested type of record fields.
	To string `yaml:"to,omitempty"`

	// Min and Max bound numbers, string lengths and collection sizes.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Pattern is a regular expression string values must match.
	Pattern string `yaml:"pattern,omitempty"`

	// Values lists the allowed values.
	Values []string `yaml:"values,omitempty"`
}

// TypeResolver finds the record type a record field points to.
type TypeResolver func(name string) (RecordType, error)

// Property builds the property the field declares.
func (f Field) Property(resolve TypeResolver) (*Property, error) {
	p := &Property{
		Name:       f.Name,
		Required:   f.Required,
		Collection: f.Collection,
	}

	if f.Type == TypeRecord {
		if resolve == nil {
			return nil, fmt.Errorf("field %q: no resolver for record type %q", f.Name, f.To)
		}
		rt, err := resolve(f.To)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		p.Codec = RecordCodec{Record: rt}
	} else {
		codec, ok := CodecFor(f.Type)
		if !ok {
			return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		p.Codec = codec
	}

	if f.Default != nil {
		if f.Collection == NoCollection {
			def, err := p.Codec.Parse(f.Default)
			if err != nil {
				return nil, fmt.Errorf("field %q default: %w", f.Name, err)
			}
			p.Default = def
		} else {
			p.Default = f.Default
		}
	}

	validator, err := f.constraints()
	if err != nil {
		return nil, err
	}
	p.Validator = validator
	return p, nil
}
