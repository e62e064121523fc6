package schema

import (
	"errors"
	"fmt"
)

// Schema is the ordered set of properties declared by a record type.
type Schema struct {
	props map[string]*Property
	order []string
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{props: make(map[string]*Property)}
}

// Register declares a field. spec is a *Property, a Property or a default
// literal passed to Infer. Registering a name again replaces its property
// and keeps the field's position.
func (s *Schema) Register(name string, spec any) (*Property, error) {
	if name == "" {
		return nil, errors.New("field name is required")
	}

	var p *Property
	switch v := spec.(type) {
	case *Property:
		if v == nil {
			return nil, fmt.Errorf("field %q: nil property", name)
		}
		cp := *v
		p = &cp
	case Property:
		p = &v
	default:
		inferred, err := Infer(name, spec)
		if err != nil {
			return nil, err
		}
		p = inferred
	}
	p.Name = name

	if s.props == nil {
		s.props = make(map[string]*Property)
	}
	if _, exists := s.props[name]; !exists {
		s.order = append(s.order, name)
	}
	s.props[name] = p
	return p, nil
}

// Lookup returns the property declared for name.
func (s *Schema) Lookup(name string) (*Property, bool) {
	p, ok := s.props[name]
	return p, ok
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.order)
}

// Each calls fn for every property in declaration order.
func (s *Schema) Each(fn func(p *Property)) {
	for _, name := range s.order {
		fn(s.props[name])
	}
}

// Extend returns a copy that can take more fields without touching s.
func (s *Schema) Extend() *Schema {
	ext := &Schema{
		props: make(map[string]*Property, len(s.props)),
		order: make([]string, len(s.order)),
	}
	copy(ext.order, s.order)
	for name, p := range s.props {
		ext.props[name] = p
	}
	return ext
}
