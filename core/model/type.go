// Package model implements the change-tracking record.
//
// A Type is built once with Define (or Type.Extend) and holds the field,
// slice and storage tables shared by its records. A Record keeps, per
// field, an original (committed) value and a pending changed value on top
// of the default the schema declares.
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/core/schema"
	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/ports"
)

// DefaultSlice is the slice every type declares. It includes every field.
const DefaultSlice = "default"

// Type is a record type. It is immutable once built.
type Type struct {
	name     string
	parent   *Type
	schema   *schema.Schema
	slices   map[string]slice.Slice
	storages map[string]ports.Storage
	strict   bool
	key      string
	ids      ports.IDGenerator
	logger   zerolog.Logger
}

// TypeName returns the type name.
func (t *Type) TypeName() string { return t.name }

// Parent returns the type t extends, or nil.
func (t *Type) Parent() *Type { return t.parent }

// Strict reports whether records reject undeclared fields.
func (t *Type) Strict() bool { return t.strict }

// KeyField returns the name of the key field, or "".
func (t *Type) KeyField() string { return t.key }

// Fields returns the declared field names in order.
func (t *Type) Fields() []string { return t.schema.Fields() }

// Property returns the property declared for field.
func (t *Type) Property(field string) (*schema.Property, bool) {
	return t.schema.Lookup(field)
}

// Slices returns the declared slice names, sorted.
func (t *Type) Slices() []string {
	names := make([]string, 0, len(t.slices))
	for name := range t.slices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Slice returns the slice declared under name.
func (t *Type) Slice(name string) (slice.Slice, error) {
	s, ok := t.slices[name]
	if !ok {
		return slice.Slice{}, fmt.Errorf("%s: %w %q", t.name, ErrUnknownSlice, name)
	}
	return s, nil
}

// Storages returns the declared storage names, sorted.
func (t *Type) Storages() []string {
	names := make([]string, 0, len(t.storages))
	for name := range t.storages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Type) storage(name string) (ports.Storage, error) {
	st, ok := t.storages[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", t.name, ErrUnknownStorage, name)
	}
	return st, nil
}

// New creates an empty record. It implements schema.RecordType.
func (t *Type) New() schema.Instance {
	return t.NewRecord()
}

// IsInstance reports whether v is a record of t or of a type extending t.
func (t *Type) IsInstance(v any) bool {
	r, ok := v.(*Record)
	if !ok || r == nil {
		return false
	}
	for rt := r.typ; rt != nil; rt = rt.parent {
		if rt == t {
			return true
		}
	}
	return false
}

// Extend starts a subtype that inherits the fields, slices, storages,
// strictness and key of t. The subtype works on copies of t's tables.
func (t *Type) Extend(name string) *Builder {
	sub := &Type{
		name:     name,
		parent:   t,
		schema:   t.schema.Extend(),
		slices:   make(map[string]slice.Slice, len(t.slices)),
		storages: make(map[string]ports.Storage, len(t.storages)),
		strict:   t.strict,
		key:      t.key,
		ids:      t.ids,
		logger:   t.logger,
	}
	for k, v := range t.slices {
		sub.slices[k] = v
	}
	for k, v := range t.storages {
		sub.storages[k] = v
	}
	b := &Builder{t: sub}
	if name == "" {
		b.errs = append(b.errs, errors.New("type name is required"))
	}
	return b
}

// Builder accumulates the definition of a Type. Once Build succeeds the
// builder no longer changes the type.
type Builder struct {
	t     *Type
	errs  []error
	built bool
}

// Define starts a new type.
func Define(name string) *Builder {
	b := &Builder{t: &Type{
		name:     name,
		schema:   schema.New(),
		slices:   map[string]slice.Slice{DefaultSlice: slice.All()},
		storages: make(map[string]ports.Storage),
		logger:   zerolog.Nop(),
	}}
	if name == "" {
		b.errs = append(b.errs, errors.New("type name is required"))
	}
	return b
}

// Field declares a field. spec is a *schema.Property or a default literal
// (see schema.Infer). Declaring an inherited field again overrides its
// property but keeps its position.
func (b *Builder) Field(name string, spec any) *Builder {
	if b.sealed("field " + name) {
		return b
	}
	if _, err := b.t.schema.Register(name, spec); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Slice declares a named slice. spec is anything slice.New accepts.
func (b *Builder) Slice(name string, spec any) *Builder {
	if b.sealed("slice " + name) {
		return b
	}
	s, err := slice.New(spec)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("slice %q: %w", name, err))
		return b
	}
	b.t.slices[name] = s
	return b
}

// Strict makes records reject undeclared fields.
func (b *Builder) Strict(strict bool) *Builder {
	if b.sealed("strict") {
		return b
	}
	b.t.strict = strict
	return b
}

// Key names the field that identifies records in storage.
func (b *Builder) Key(field string) *Builder {
	if b.sealed("key") {
		return b
	}
	b.t.key = field
	return b
}

// Storage registers a named storage backend.
func (b *Builder) Storage(name string, st ports.Storage) *Builder {
	if b.sealed("storage " + name) {
		return b
	}
	if st == nil {
		b.errs = append(b.errs, fmt.Errorf("storage %q is nil", name))
		return b
	}
	b.t.storages[name] = st
	return b
}

// IDs sets the generator used to fill an empty key field on Store.
func (b *Builder) IDs(gen ports.IDGenerator) *Builder {
	if b.sealed("ids") {
		return b
	}
	b.t.ids = gen
	return b
}

// Logger sets the logger records of the type use.
func (b *Builder) Logger(logger zerolog.Logger) *Builder {
	if b.sealed("logger") {
		return b
	}
	b.t.logger = logger
	return b
}

// Build validates the definition and returns the type.
func (b *Builder) Build() (*Type, error) {
	if b.built {
		return nil, errors.Join(fmt.Errorf("type %q already built", b.t.name), errors.Join(b.errs...))
	}
	errs := append([]error(nil), b.errs...)
	if b.t.key != "" {
		if _, ok := b.t.schema.Lookup(b.t.key); !ok {
			errs = append(errs, fmt.Errorf("key %q is not a declared field", b.t.key))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("define %q: %w", b.t.name, err)
	}
	b.built = true
	return b.t, nil
}

// sealed reports whether the type was already built. Changes to a built
// type are dropped and recorded as errors.
func (b *Builder) sealed(what string) bool {
	if b.built {
		b.errs = append(b.errs, fmt.Errorf("type %q already built: %s not applied", b.t.name, what))
	}
	return b.built
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Type) newKey() string {
	if t.ids != nil {
		return t.ids.New()
	}
	return uuid.NewString()
}
