package collection

import (
	"fmt"
	"sort"

	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// Mapping binds unique string keys to values and iterates them in
// insertion order.
type Mapping struct {
	keys    []string
	values  map[string]any
	emitter events.Emitter
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// Subscribe registers a handler on the mapping's emitter.
func (m *Mapping) Subscribe(event string, handler events.Handler) events.Subscription {
	return m.emitter.Subscribe(event, handler)
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Get returns the value bound to key.
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is bound.
func (m *Mapping) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set binds key to v. Rebinding a key to an equal value does not notify;
// a new key always does.
func (m *Mapping) Set(key string, v any) error {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if old, ok := m.values[key]; ok {
		if value.Equal(old, v) {
			return nil
		}
		m.values[key] = v
		return notify(&m.emitter)
	}
	m.keys = append(m.keys, key)
	m.values[key] = v
	return notify(&m.emitter)
}

// Delete removes key and its value.
func (m *Mapping) Delete(key string) (bool, error) {
	if _, ok := m.values[key]; !ok {
		return false, nil
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
	return true, notify(&m.emitter)
}

// Clear removes every key. Clearing an empty mapping does not notify.
func (m *Mapping) Clear() error {
	if len(m.keys) == 0 {
		return nil
	}
	m.keys = nil
	m.values = make(map[string]any)
	return notify(&m.emitter)
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Values returns the values in key insertion order.
func (m *Mapping) Values() []any {
	out := make([]any, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.values[k]
	}
	return out
}

// Children implements Collection.
func (m *Mapping) Children() []any {
	return m.Values()
}

// KeyOf returns the first key bound to a value equal to v.
func (m *Mapping) KeyOf(v any) (string, bool) {
	for _, k := range m.keys {
		if value.Equal(m.values[k], v) {
			return k, true
		}
	}
	return "", false
}

// Each calls fn for every entry in insertion order.
func (m *Mapping) Each(fn func(key string, v any)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// Filter returns the keys whose entries satisfy fn.
func (m *Mapping) Filter(fn func(key string, v any) bool) []string {
	var out []string
	for _, k := range m.keys {
		if fn(k, m.values[k]) {
			out = append(out, k)
		}
	}
	return out
}

// Serialize converts every value through elem into an ordered object.
func (m *Mapping) Serialize(elem Element, s slice.Slice) (any, error) {
	out := value.NewObject()
	for _, k := range m.keys {
		raw, err := elem.SerializeElement(m.values[k], s)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out.Set(k, raw)
	}
	return out, nil
}

// Parse restores every entry of raw and binds it, notifying once. raw may
// be a *value.Object, whose order is kept, or a map, read in sorted key
// order.
func (m *Mapping) Parse(raw any, elem Element) error {
	var keys []string
	var get func(string) any
	switch r := raw.(type) {
	case *value.Object:
		keys = r.Keys()
		get = func(k string) any { v, _ := r.Get(k); return v }
	case map[string]any:
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		get = func(k string) any { return r[k] }
	default:
		return fmt.Errorf("mapping: expected object, got %T", raw)
	}

	restored := make([]any, len(keys))
	for i, k := range keys {
		v, err := elem.RestoreElement(get(k))
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		restored[i] = v
	}

	if m.values == nil {
		m.values = make(map[string]any)
	}
	changed := false
	for i, k := range keys {
		old, ok := m.values[k]
		if ok && value.Equal(old, restored[i]) {
			continue
		}
		if !ok {
			m.keys = append(m.keys, k)
		}
		m.values[k] = restored[i]
		changed = true
	}
	if !changed {
		return nil
	}
	return notify(&m.emitter)
}
