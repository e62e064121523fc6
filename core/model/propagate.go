package model

import (
	"github.com/matchboxjs/matchbox-model/core/collection"
	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/schema"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// binding is the subscription a record holds on the nested value of one
// field.
type binding struct {
	source events.Source
	sub    events.Subscription
}

// bound returns the value a field currently holds for propagation
// purposes. Defaults are only consulted for non-primitive fields.
func (r *Record) bound(field string) any {
	if v, ok := r.changed[field]; ok {
		return v
	}
	if v, ok := r.original[field]; ok {
		return v
	}
	p, ok := r.typ.schema.Lookup(field)
	if !ok || p.Kind() == schema.Primitive {
		return nil
	}
	v, err := r.defaultOf(field, p)
	if err != nil {
		r.typ.logger.Error().Err(err).Str("type", r.typ.name).Str("field", field).Msg("resolve default")
		return nil
	}
	return v
}

// rebind makes the record listen to the nested value field currently
// holds, dropping the subscription on the previous one.
func (r *Record) rebind(field string) {
	var src events.Source
	if v := r.bound(field); !value.IsEmpty(v) {
		src, _ = v.(events.Source)
	}

	old, had := r.nested[field]
	if had && src != nil && old.source == src {
		return
	}
	if had {
		old.sub.Unsubscribe()
		delete(r.nested, field)
	}
	if src == nil {
		return
	}

	sub := src.Subscribe(events.Change, func(events.Event) error {
		if d, ok := r.defaults[field]; ok && d == any(src) {
			r.dirty[field] = true
		}
		return r.notify(field)
	})
	r.nested[field] = binding{source: src, sub: sub}
}

// Release drops every subscription the record holds on nested values.
// The record stops forwarding their changes until a field is assigned
// again.
func (r *Record) Release() {
	for field, b := range r.nested {
		b.sub.Unsubscribe()
		delete(r.nested, field)
	}
}

// Children returns the nested records and collections the record
// currently listens to, in field order.
func (r *Record) Children() []any {
	var out []any
	for _, field := range r.Keys() {
		if b, ok := r.nested[field]; ok {
			out = append(out, b.source)
		}
	}
	return out
}

// held returns every nested value the record references from any layer.
func (r *Record) held() []any {
	var out []any
	for _, layer := range []map[string]any{r.changed, r.original, r.defaults} {
		for _, v := range layer {
			switch v.(type) {
			case *Record, collection.Collection:
				out = append(out, v)
			}
		}
	}
	return out
}

// reaches reports whether v is r or references r, directly or through
// nested records and collections.
func (r *Record) reaches(v any) bool {
	if value.IsEmpty(v) {
		return false
	}
	seen := make(map[any]bool)
	var walk func(x any) bool
	walk = func(x any) bool {
		var children []any
		switch n := x.(type) {
		case *Record:
			if n == r {
				return true
			}
			if n == nil || seen[n] {
				return false
			}
			seen[n] = true
			children = n.held()
		case collection.Collection:
			if value.IsEmpty(n) || seen[n] {
				return false
			}
			seen[n] = true
			children = n.Children()
		default:
			return false
		}
		for _, c := range children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(v)
}
