package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/schema"
	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// Record is an instance of a Type. Each field is in one of three states:
// Default (no original, no changed value), Original (committed value, no
// pending edit) or Changed (pending edit).
//
// A Record is not safe for concurrent use. Change notifications are
// delivered synchronously; a handler may mutate the record again, but the
// no-op checks of Set then compare against state the handler changed.
type Record struct {
	typ      *Type
	original map[string]any
	changed  map[string]any
	defaults map[string]any
	dirty    map[string]bool // cached defaults edited in place
	errors   map[string]schema.ErrorKind
	emitter  events.Emitter
	nested   map[string]binding
}

// NewRecord creates an empty record of t.
func (t *Type) NewRecord() *Record {
	r := &Record{
		typ:      t,
		original: make(map[string]any),
		changed:  make(map[string]any),
		defaults: make(map[string]any),
		dirty:    make(map[string]bool),
		errors:   make(map[string]schema.ErrorKind),
		nested:   make(map[string]binding),
	}
	r.emitter.SetLogger(t.logger)
	for _, field := range t.schema.Fields() {
		r.rebind(field)
	}
	return r
}

// Type returns the record's type.
func (r *Record) Type() *Type { return r.typ }

// TypeName returns the record's type name.
func (r *Record) TypeName() string { return r.typ.name }

// Subscribe registers a handler for "change" or "change:<field>".
func (r *Record) Subscribe(event string, handler events.Handler) events.Subscription {
	return r.emitter.Subscribe(event, handler)
}

func (r *Record) property(field string) (*schema.Property, error) {
	if p, ok := r.typ.schema.Lookup(field); ok {
		return p, nil
	}
	if r.typ.strict {
		return nil, &FieldError{Type: r.typ.name, Field: field}
	}
	return schema.Inert(field), nil
}

// defaultOf resolves the default of field. Collection and record defaults
// are resolved once and reused, so the default value is stable.
func (r *Record) defaultOf(field string, p *schema.Property) (any, error) {
	if p.Kind() == schema.Primitive {
		return p.GetDefault()
	}
	if v, ok := r.defaults[field]; ok {
		return v, nil
	}
	v, err := p.GetDefault()
	if err != nil {
		return nil, err
	}
	r.defaults[field] = v
	return v, nil
}

func (r *Record) current(field string, p *schema.Property) (any, error) {
	if v, ok := r.changed[field]; ok {
		return v, nil
	}
	if v, ok := r.original[field]; ok {
		return v, nil
	}
	return r.defaultOf(field, p)
}

// Get returns the changed value of field, else its original value, else
// its default.
func (r *Record) Get(field string) (any, error) {
	p, err := r.property(field)
	if err != nil {
		return nil, err
	}
	return r.current(field, p)
}

// Set assigns v to field.
//
// While the field is Changed, setting the same value again does nothing
// and setting its resting value drops the pending edit. The resting value
// is the original; a field without one rests on its default or on nil.
// Otherwise a pending edit is only recorded when v differs from both the
// original and the default. On a field without an original, nil counts
// as the resting value in both cases.
// Assigning a nested record or collection that already reaches r fails
// with ErrCycle.
func (r *Record) Set(field string, v any) error {
	p, err := r.property(field)
	if err != nil {
		return err
	}
	if r.reaches(v) {
		return fmt.Errorf("%s: set %q: %w", r.typ.name, field, ErrCycle)
	}

	orig, hasOrig := r.original[field]
	def, err := r.defaultOf(field, p)
	if err != nil {
		return err
	}

	if cur, changed := r.changed[field]; changed {
		if p.Equal(cur, v) {
			return nil
		}
		atRest := p.Equal(def, v) || value.IsEmpty(v)
		if hasOrig {
			atRest = p.Equal(orig, v)
		}
		if atRest {
			delete(r.changed, field)
		} else {
			r.changed[field] = v
		}
		r.rebind(field)
		return r.notify(field)
	}

	sameAsOriginal := p.Equal(orig, v)
	if !hasOrig {
		sameAsOriginal = value.IsEmpty(v)
	}
	if sameAsOriginal || p.Equal(def, v) {
		return nil
	}
	r.changed[field] = v
	r.rebind(field)
	return r.notify(field)
}

// targets returns fields, or every declared field followed by undeclared
// fields holding values when fields is empty.
func (r *Record) targets(fields []string) ([]string, error) {
	if len(fields) > 0 {
		for _, f := range fields {
			if _, err := r.property(f); err != nil {
				return nil, err
			}
		}
		return fields, nil
	}
	return r.Keys(), nil
}

// Commit moves the pending edits of fields (all fields when none are
// given) into the original layer. It publishes nothing.
func (r *Record) Commit(fields ...string) error {
	targets, err := r.targets(fields)
	if err != nil {
		return err
	}
	for _, f := range targets {
		if v, ok := r.changed[f]; ok {
			r.original[f] = v
			delete(r.changed, f)
		}
	}
	return nil
}

// Revert discards the pending edits of fields (all fields when none are
// given).
func (r *Record) Revert(fields ...string) error {
	targets, err := r.targets(fields)
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range targets {
		if _, ok := r.changed[f]; !ok {
			continue
		}
		delete(r.changed, f)
		r.rebind(f)
		errs = append(errs, r.notify(f))
	}
	return errors.Join(errs...)
}

// Reset returns fields (all fields when none are given) to their default,
// discarding pending and original values. A default collection or record
// that was edited in place is replaced by a fresh default. It publishes
// "change:<field>" per affected field and one "change" if any field was
// affected.
func (r *Record) Reset(fields ...string) error {
	targets, err := r.targets(fields)
	if err != nil {
		return err
	}
	var errs []error
	affected := false
	for _, f := range targets {
		_, changed := r.changed[f]
		_, original := r.original[f]
		dirty := r.dirty[f]
		if !changed && !original && !dirty {
			continue
		}
		if dirty {
			delete(r.defaults, f)
			delete(r.dirty, f)
		}
		delete(r.changed, f)
		delete(r.original, f)
		r.rebind(f)
		affected = true
		v, _ := r.Get(f)
		errs = append(errs, r.emitter.Emit(events.Event{Name: events.FieldChange(f), Field: f, Value: v}))
	}
	if affected {
		errs = append(errs, r.emitter.Emit(events.Event{Name: events.Change}))
	}
	return errors.Join(errs...)
}

// Restore loads raw data into the original layer. raw may be a
// *value.Object, a map[string]any, or JSON as string or []byte. Declared
// fields present with a non-nil value are parsed and stored as original
// values; other fields are left alone. Nothing is published and pending
// edits are kept. Malformed data fails with a *ParseError and leaves the
// record untouched.
func (r *Record) Restore(raw any) error {
	if err := r.restore(raw); err != nil {
		r.typ.logger.Error().Err(err).Str("type", r.typ.name).Msg("restore failed")
		return err
	}
	return nil
}

func (r *Record) restore(raw any) error {
	switch data := raw.(type) {
	case string:
		decoded, err := value.Decode([]byte(data))
		if err != nil {
			return &ParseError{Type: r.typ.name, Err: err}
		}
		raw = decoded
	case []byte:
		decoded, err := value.Decode(data)
		if err != nil {
			return &ParseError{Type: r.typ.name, Err: err}
		}
		raw = decoded
	case json.RawMessage:
		decoded, err := value.Decode(data)
		if err != nil {
			return &ParseError{Type: r.typ.name, Err: err}
		}
		raw = decoded
	}

	var lookup func(string) (any, bool)
	switch data := raw.(type) {
	case *value.Object:
		if data == nil {
			return &ParseError{Type: r.typ.name, Err: errors.New("nil object")}
		}
		lookup = data.Get
	case map[string]any:
		lookup = func(k string) (any, bool) {
			v, ok := data[k]
			return v, ok
		}
	default:
		return &ParseError{Type: r.typ.name, Err: fmt.Errorf("expected object, got %T", raw)}
	}

	type entry struct {
		field string
		value any
	}
	var parsed []entry
	for _, field := range r.typ.schema.Fields() {
		rawValue, ok := lookup(field)
		if !ok || value.IsEmpty(rawValue) {
			continue
		}
		p, _ := r.typ.schema.Lookup(field)
		v, err := p.Restore(rawValue)
		if err != nil {
			return &ParseError{Type: r.typ.name, Field: field, Err: err}
		}
		if r.reaches(v) {
			return &ParseError{Type: r.typ.name, Field: field, Err: ErrCycle}
		}
		parsed = append(parsed, entry{field, v})
	}

	for _, e := range parsed {
		r.original[e.field] = e.value
		r.rebind(e.field)
	}
	return nil
}

// Slice serializes the record through the slice declared under name.
func (r *Record) Slice(name string) (*value.Object, error) {
	s, err := r.typ.Slice(name)
	if err != nil {
		return nil, err
	}
	return r.SliceWith(s)
}

// SliceWith serializes the declared fields s includes, in declaration
// order. Empty fields are skipped. Nested records and collections are
// serialized with the field's sub-slice.
func (r *Record) SliceWith(s slice.Slice) (*value.Object, error) {
	out := value.NewObject()
	for _, field := range r.typ.schema.Fields() {
		if !s.Includes(field) {
			continue
		}
		p, _ := r.typ.schema.Lookup(field)
		v, err := r.current(field, p)
		if err != nil {
			return nil, err
		}
		if value.IsEmpty(v) {
			continue
		}
		raw, err := p.Serialize(v, s.Sub(field))
		if err != nil {
			return nil, fmt.Errorf("%s: serialize %q: %w", r.typ.name, field, err)
		}
		out.Set(field, raw)
	}
	return out, nil
}

// MarshalJSON encodes the default slice.
func (r *Record) MarshalJSON() ([]byte, error) {
	obj, err := r.Slice(DefaultSlice)
	if err != nil {
		return nil, err
	}
	return obj.MarshalJSON()
}

// UnmarshalJSON restores the record from JSON. r must come from
// Type.NewRecord.
func (r *Record) UnmarshalJSON(data []byte) error {
	return r.Restore(data)
}

// Validate checks fields (all declared fields when none are given) and
// replaces the recorded errors with the result. It reports whether every
// checked field is valid. On a strict type an undeclared field is recorded
// as UnknownFieldKind; use ValidateFields to fail on it instead.
func (r *Record) Validate(fields ...string) bool {
	if len(fields) == 0 {
		fields = r.typ.schema.Fields()
	}
	errs := make(map[string]schema.ErrorKind)
	for _, f := range fields {
		p, err := r.property(f)
		if err != nil {
			errs[f] = UnknownFieldKind
			continue
		}
		v, err := r.current(f, p)
		if err != nil {
			errs[f] = schema.TypeMismatchError
			continue
		}
		if kind := p.Validate(v); kind != schema.Valid {
			errs[f] = kind
		}
	}
	r.errors = errs
	return len(errs) == 0
}

// ValidateFields is like Validate but fails with a *FieldError, leaving
// the recorded errors alone, when a field is unknown to a strict type.
func (r *Record) ValidateFields(fields ...string) (bool, error) {
	for _, f := range fields {
		if _, err := r.property(f); err != nil {
			return false, err
		}
	}
	return r.Validate(fields...), nil
}

// Errors returns the result of the last Validate call.
func (r *Record) Errors() map[string]schema.ErrorKind {
	out := make(map[string]schema.ErrorKind, len(r.errors))
	for k, v := range r.errors {
		out[k] = v
	}
	return out
}

func (r *Record) notify(field string) error {
	v, _ := r.Get(field)
	return errors.Join(
		r.emitter.Emit(events.Event{Name: events.FieldChange(field), Field: field, Value: v}),
		r.emitter.Emit(events.Event{Name: events.Change, Field: field, Value: v}),
	)
}
