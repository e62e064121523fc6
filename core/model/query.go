package model

import (
	"sort"

	"github.com/matchboxjs/matchbox-model/core/value"
)

// IsChanged reports whether field has a pending edit.
func (r *Record) IsChanged(field string) bool {
	_, ok := r.changed[field]
	return ok
}

// IsOriginal reports whether field has a committed value and no pending
// edit.
func (r *Record) IsOriginal(field string) bool {
	if r.IsChanged(field) {
		return false
	}
	_, ok := r.original[field]
	return ok
}

// IsDefault reports whether field has neither an original nor a pending
// value.
func (r *Record) IsDefault(field string) bool {
	return !r.IsChanged(field) && !r.IsOriginal(field)
}

// IsEmpty reports whether the current value of field is nil.
func (r *Record) IsEmpty(field string) bool {
	v, err := r.Get(field)
	return err != nil || value.IsEmpty(v)
}

// HasDefault reports whether field declares a default.
func (r *Record) HasDefault(field string) bool {
	p, err := r.property(field)
	return err == nil && p.HasDefault()
}

// IsRequired reports whether field is required.
func (r *Record) IsRequired(field string) bool {
	p, err := r.property(field)
	return err == nil && p.Required
}

// Equals compares the current value of field with v using the field's
// equality rule.
func (r *Record) Equals(field string, v any) bool {
	p, err := r.property(field)
	if err != nil {
		return false
	}
	cur, err := r.current(field, p)
	return err == nil && p.Equal(cur, v)
}

// HasChanges reports whether any field has a pending edit.
func (r *Record) HasChanges() bool {
	return len(r.changed) > 0
}

// ChangedCount returns the number of fields with a pending edit.
func (r *Record) ChangedCount() int {
	return len(r.changed)
}

// Keys returns the declared fields in order, followed by undeclared fields
// holding values, sorted.
func (r *Record) Keys() []string {
	keys := r.typ.schema.Fields()
	var extra []string
	seen := make(map[string]bool)
	for _, layer := range []map[string]any{r.original, r.changed} {
		for k := range layer {
			if _, declared := r.typ.schema.Lookup(k); !declared && !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Values returns the current value of every key, in Keys order.
func (r *Record) Values() []any {
	keys := r.Keys()
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i], _ = r.Get(k)
	}
	return out
}

// ChangedKeys returns the fields with pending edits, in Keys order.
func (r *Record) ChangedKeys() []string {
	keys := []string{}
	for _, k := range r.Keys() {
		if r.IsChanged(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// ChangedValues returns the pending values, in ChangedKeys order.
func (r *Record) ChangedValues() []any {
	keys := r.ChangedKeys()
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = r.changed[k]
	}
	return out
}

// Changes returns the pending values by field.
func (r *Record) Changes() map[string]any {
	return copyLayer(r.changed)
}

// Originals returns the original values by field.
func (r *Record) Originals() map[string]any {
	return copyLayer(r.original)
}

// Defaults returns the default of every declared field that has one.
func (r *Record) Defaults() map[string]any {
	out := make(map[string]any)
	for _, field := range r.typ.schema.Fields() {
		p, _ := r.typ.schema.Lookup(field)
		v, err := r.defaultOf(field, p)
		if err != nil || value.IsEmpty(v) {
			continue
		}
		out[field] = v
	}
	return out
}

// GetOriginal returns the original value of field.
func (r *Record) GetOriginal(field string) (any, bool) {
	v, ok := r.original[field]
	return v, ok
}

// GetChanged returns the pending value of field.
func (r *Record) GetChanged(field string) (any, bool) {
	v, ok := r.changed[field]
	return v, ok
}

// GetDefault returns the default of field.
func (r *Record) GetDefault(field string) (any, error) {
	p, err := r.property(field)
	if err != nil {
		return nil, err
	}
	return r.defaultOf(field, p)
}

func copyLayer(layer map[string]any) map[string]any {
	out := make(map[string]any, len(layer))
	for k, v := range layer {
		out[k] = v
	}
	return out
}
