package schema

import (
	"fmt"
	"reflect"

	"github.com/matchboxjs/matchbox-model/core/collection"
	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// ErrorKind identifies a validation failure. The empty kind means valid.
type ErrorKind string

const (
	Valid             ErrorKind = ""
	RequiredError     ErrorKind = "required"
	TypeMismatchError ErrorKind = "type_mismatch"
)

// ValueKind tells what a field holds.
type ValueKind int

const (
	Primitive ValueKind = iota
	NestedRecord
	CollectionValue
)

func (k ValueKind) String() string {
	switch k {
	case NestedRecord:
		return "record"
	case CollectionValue:
		return "collection"
	default:
		return "primitive"
	}
}

// CollectionKind selects the container a collection field uses.
type CollectionKind string

const (
	NoCollection CollectionKind = ""
	Sequence     CollectionKind = "sequence"
	Mapping      CollectionKind = "mapping"
)

// Property describes one field of a record type. A registered property is
// shared by every record of the type and must not be modified.
type Property struct {
	// Name is the field name.
	Name string

	// Required fields fail validation while empty.
	Required bool

	// Default is the static default. For collection fields it is the
	// payload parsed into a fresh collection.
	Default any

	// DefaultFunc, when set, produces the default instead of Default.
	DefaultFunc func() any

	// Collection wraps the field type in a container. Codec then describes
	// the elements.
	Collection CollectionKind

	// Codec handles values of the field type. Nil means AnyCodec.
	Codec Codec

	// Validator runs after the built-in checks.
	Validator func(v any) ErrorKind

	// Instantiator overrides how a parsed raw value becomes an in-memory
	// value for non-collection fields.
	Instantiator func(parsed any) (any, error)
}

// Inert returns the descriptor used for undeclared fields of non-strict
// records: no default, never required, always valid.
func Inert(name string) *Property {
	return &Property{Name: name, Codec: AnyCodec{}}
}

func (p *Property) codec() Codec {
	if p.Codec == nil {
		return AnyCodec{}
	}
	return p.Codec
}

// Type returns the field type name.
func (p *Property) Type() string {
	return p.codec().Type()
}

// Kind reports whether the field holds a plain value, a nested record or
// a collection.
func (p *Property) Kind() ValueKind {
	if p.Collection != NoCollection {
		return CollectionValue
	}
	if _, ok := p.codec().(RecordCodec); ok {
		return NestedRecord
	}
	return Primitive
}

// RecordType returns the nested record type for record fields and record
// collections.
func (p *Property) RecordType() (RecordType, bool) {
	c, ok := p.codec().(RecordCodec)
	if !ok {
		return nil, false
	}
	return c.Record, true
}

// HasDefault reports whether the field resolves to something other than
// nil when unset. Collection fields always do.
func (p *Property) HasDefault() bool {
	return p.Default != nil || p.DefaultFunc != nil || p.Collection != NoCollection
}

// GetDefault resolves the default value. Collection fields get a fresh
// collection holding the parsed default payload, so every call returns a
// new value for them.
func (p *Property) GetDefault() (any, error) {
	def := p.Default
	if p.DefaultFunc != nil {
		def = p.DefaultFunc()
	}

	switch p.Collection {
	case Sequence:
		seq := collection.NewSequence()
		if def != nil {
			if err := seq.Parse(toList(def), p); err != nil {
				return nil, fmt.Errorf("default of %q: %w", p.Name, err)
			}
		}
		return seq, nil
	case Mapping:
		m := collection.NewMapping()
		if def != nil {
			if err := m.Parse(def, p); err != nil {
				return nil, fmt.Errorf("default of %q: %w", p.Name, err)
			}
		}
		return m, nil
	}
	return def, nil
}

// Validate checks v against the required flag, the field type and the
// custom validator, in that order, and returns the first failure.
func (p *Property) Validate(v any) ErrorKind {
	if value.IsEmpty(v) {
		if p.Required {
			return RequiredError
		}
	} else if !p.accepts(v) {
		return TypeMismatchError
	}
	if p.Validator != nil {
		return p.Validator(v)
	}
	return Valid
}

func (p *Property) accepts(v any) bool {
	switch p.Collection {
	case Sequence:
		_, ok := v.(*collection.Sequence)
		return ok
	case Mapping:
		_, ok := v.(*collection.Mapping)
		return ok
	}
	return p.codec().Accepts(v)
}

// Equal compares two values of this field.
func (p *Property) Equal(a, b any) bool {
	if p.Collection != NoCollection {
		return value.Equal(a, b)
	}
	return p.codec().Equal(a, b)
}

// Serialize converts v into its raw form under slice s.
func (p *Property) Serialize(v any, s slice.Slice) (any, error) {
	if p.Collection != NoCollection {
		c, ok := v.(collection.Collection)
		if !ok {
			return nil, fmt.Errorf("field %q: expected %s collection, got %T", p.Name, p.Collection, v)
		}
		return c.Serialize(p, s)
	}
	return p.codec().Serialize(v, s)
}

// Parse converts raw data into its parsed form. Collections are parsed
// element by element in Instantiate.
func (p *Property) Parse(raw any) (any, error) {
	if p.Collection != NoCollection {
		return raw, nil
	}
	return p.codec().Parse(raw)
}

// Instantiate builds the in-memory value from a parsed value: a filled
// collection, a restored nested record, or the parsed value itself.
func (p *Property) Instantiate(parsed any) (any, error) {
	switch p.Collection {
	case Sequence:
		seq := collection.NewSequence()
		if err := seq.Parse(toList(parsed), p); err != nil {
			return nil, err
		}
		return seq, nil
	case Mapping:
		m := collection.NewMapping()
		if err := m.Parse(parsed, p); err != nil {
			return nil, err
		}
		return m, nil
	}
	return p.instantiateOne(parsed)
}

func (p *Property) instantiateOne(parsed any) (any, error) {
	if p.Instantiator != nil {
		return p.Instantiator(parsed)
	}
	if rt, ok := p.RecordType(); ok {
		if inst, ok := parsed.(Instance); ok && rt.IsInstance(inst) {
			return inst, nil
		}
		inst := rt.New()
		if err := inst.Restore(parsed); err != nil {
			return nil, err
		}
		return inst, nil
	}
	return parsed, nil
}

// Restore parses and instantiates raw data.
func (p *Property) Restore(raw any) (any, error) {
	parsed, err := p.Parse(raw)
	if err != nil {
		return nil, err
	}
	return p.Instantiate(parsed)
}

// SerializeElement implements collection.Element.
func (p *Property) SerializeElement(v any, s slice.Slice) (any, error) {
	return p.codec().Serialize(v, s)
}

// RestoreElement implements collection.Element.
func (p *Property) RestoreElement(raw any) (any, error) {
	parsed, err := p.codec().Parse(raw)
	if err != nil {
		return nil, err
	}
	return p.instantiateOne(parsed)
}

// toList turns typed slices into []any so collections can parse them.
func toList(v any) any {
	if _, ok := v.([]any); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
