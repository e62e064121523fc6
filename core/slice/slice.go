// Package slice defines projections used to serialize records into views.
//
// A slice is either a wildcard, which includes every field and hands a
// wildcard down to nested records, or a named set of fields, each mapped to
// the slice applied to that field's nested value:
//
//	"*"                                  every field, recursively
//	{name: true, address: {city: true}}  name, and only city of address
//
// Slices hold no mutable state and may be shared freely.
package slice

import (
	"fmt"
	"sort"
)

// Wildcard is the spec value that selects everything.
const Wildcard = "*"

// Slice is an immutable projection rule.
type Slice struct {
	all    bool
	fields map[string]Slice
}

// All returns the wildcard slice.
func All() Slice {
	return Slice{all: true}
}

// None returns a slice that excludes every field.
func None() Slice {
	return Slice{}
}

// New builds a slice from a spec value: "*" or true for a wildcard, nil for
// an empty slice, a list of field names, or a map from field name to a
// nested spec.
func New(spec any) (Slice, error) {
	switch s := spec.(type) {
	case nil:
		return None(), nil
	case Slice:
		return s, nil
	case bool:
		if s {
			return All(), nil
		}
		return None(), nil
	case string:
		if s == Wildcard {
			return All(), nil
		}
		return Slice{}, fmt.Errorf("invalid slice spec %q", s)
	case map[string]any:
		fields := make(map[string]Slice, len(s))
		for name, sub := range s {
			child, err := New(sub)
			if err != nil {
				return Slice{}, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = child
		}
		return Slice{fields: fields}, nil
	case map[string]bool:
		fields := make(map[string]Slice, len(s))
		for name, in := range s {
			if in {
				fields[name] = All()
			}
		}
		return Slice{fields: fields}, nil
	case []string:
		fields := make(map[string]Slice, len(s))
		for _, name := range s {
			fields[name] = All()
		}
		return Slice{fields: fields}, nil
	case []any:
		fields := make(map[string]Slice, len(s))
		for i, item := range s {
			name, ok := item.(string)
			if !ok {
				return Slice{}, fmt.Errorf("slice entry %d is %T, want a field name", i, item)
			}
			fields[name] = All()
		}
		return Slice{fields: fields}, nil
	}
	return Slice{}, fmt.Errorf("invalid slice spec of type %T", spec)
}

// MustNew is like New but panics on an invalid spec. Use it for slices
// declared as package-level literals.
func MustNew(spec any) Slice {
	s, err := New(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// IsWildcard reports whether the slice includes everything.
func (s Slice) IsWildcard() bool {
	return s.all
}

// Includes reports whether field takes part in the projection.
func (s Slice) Includes(field string) bool {
	if s.all {
		return true
	}
	_, ok := s.fields[field]
	return ok
}

// Sub returns the slice to apply to field's nested value.
func (s Slice) Sub(field string) Slice {
	if s.all {
		return All()
	}
	return s.fields[field]
}

// Fields lists the explicitly named fields, sorted. It is empty for
// wildcard slices.
func (s Slice) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
