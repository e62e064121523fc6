package collection

import (
	"fmt"
	"sort"

	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// Sequence is an ordered list of values.
type Sequence struct {
	items   []any
	emitter events.Emitter
}

// NewSequence creates a sequence holding items.
func NewSequence(items ...any) *Sequence {
	return &Sequence{items: append([]any(nil), items...)}
}

// Subscribe registers a handler on the sequence's emitter.
func (s *Sequence) Subscribe(event string, handler events.Handler) events.Subscription {
	return s.emitter.Subscribe(event, handler)
}

// Len returns the number of items.
func (s *Sequence) Len() int {
	return len(s.items)
}

// At returns the item at i, or nil when i is out of range.
func (s *Sequence) At(i int) any {
	if i < 0 || i >= len(s.items) {
		return nil
	}
	return s.items[i]
}

// Items returns a copy of the items.
func (s *Sequence) Items() []any {
	return append([]any(nil), s.items...)
}

// Children implements Collection.
func (s *Sequence) Children() []any {
	return s.Items()
}

// IndexOf returns the position of the first item equal to v, or -1.
func (s *Sequence) IndexOf(v any) int {
	for i, item := range s.items {
		if value.Equal(item, v) {
			return i
		}
	}
	return -1
}

// Contains reports whether an item equal to v is present.
func (s *Sequence) Contains(v any) bool {
	return s.IndexOf(v) >= 0
}

// Each calls fn for every item in order.
func (s *Sequence) Each(fn func(i int, v any)) {
	for i, item := range s.items {
		fn(i, item)
	}
}

// Append adds items to the end.
func (s *Sequence) Append(items ...any) error {
	if len(items) == 0 {
		return nil
	}
	s.items = append(s.items, items...)
	return notify(&s.emitter)
}

// Prepend adds items to the front, keeping their order.
func (s *Sequence) Prepend(items ...any) error {
	return s.Insert(0, items...)
}

// Insert adds items before position i. i may equal Len.
func (s *Sequence) Insert(i int, items ...any) error {
	if i < 0 || i > len(s.items) {
		return fmt.Errorf("insert at %d: %w", i, ErrIndexOutOfRange)
	}
	if len(items) == 0 {
		return nil
	}
	next := make([]any, 0, len(s.items)+len(items))
	next = append(next, s.items[:i]...)
	next = append(next, items...)
	next = append(next, s.items[i:]...)
	s.items = next
	return notify(&s.emitter)
}

// Splice removes deleteCount items starting at start, inserts items in
// their place and returns the removed items. deleteCount is clamped to the
// available items.
func (s *Sequence) Splice(start, deleteCount int, items ...any) ([]any, error) {
	if start < 0 || start > len(s.items) {
		return nil, fmt.Errorf("splice at %d: %w", start, ErrIndexOutOfRange)
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > len(s.items) {
		deleteCount = len(s.items) - start
	}
	if deleteCount == 0 && len(items) == 0 {
		return nil, nil
	}
	removed := append([]any(nil), s.items[start:start+deleteCount]...)
	next := make([]any, 0, len(s.items)-deleteCount+len(items))
	next = append(next, s.items[:start]...)
	next = append(next, items...)
	next = append(next, s.items[start+deleteCount:]...)
	s.items = next
	return removed, notify(&s.emitter)
}

// SetAt replaces the item at i. Replacing an item with an equal value does
// not notify.
func (s *Sequence) SetAt(i int, v any) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("set at %d: %w", i, ErrIndexOutOfRange)
	}
	if value.Equal(s.items[i], v) {
		return nil
	}
	s.items[i] = v
	return notify(&s.emitter)
}

// Pop removes and returns the last item. It returns nil for an empty
// sequence.
func (s *Sequence) Pop() (any, error) {
	if len(s.items) == 0 {
		return nil, nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, notify(&s.emitter)
}

// Shift removes and returns the first item. It returns nil for an empty
// sequence.
func (s *Sequence) Shift() (any, error) {
	if len(s.items) == 0 {
		return nil, nil
	}
	first := s.items[0]
	s.items = append([]any(nil), s.items[1:]...)
	return first, notify(&s.emitter)
}

// Remove deletes the first item equal to v.
func (s *Sequence) Remove(v any) (bool, error) {
	i := s.IndexOf(v)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return true, notify(&s.emitter)
}

// RemoveAll deletes the first occurrence of each of vs and notifies once
// if anything was removed.
func (s *Sequence) RemoveAll(vs ...any) (bool, error) {
	removed := false
	for _, v := range vs {
		if i := s.IndexOf(v); i >= 0 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			removed = true
		}
	}
	if !removed {
		return false, nil
	}
	return true, notify(&s.emitter)
}

// Reverse reverses the items in place.
func (s *Sequence) Reverse() error {
	if len(s.items) < 2 {
		return nil
	}
	for i, j := 0, len(s.items)-1; i < j; i, j = i+1, j-1 {
		s.items[i], s.items[j] = s.items[j], s.items[i]
	}
	return notify(&s.emitter)
}

// Sort orders the items with less, keeping equal items in place.
func (s *Sequence) Sort(less func(a, b any) bool) error {
	if len(s.items) < 2 {
		return nil
	}
	sort.SliceStable(s.items, func(i, j int) bool { return less(s.items[i], s.items[j]) })
	return notify(&s.emitter)
}

// Move relocates the item at from so that it ends up at position to.
func (s *Sequence) Move(from, to int) error {
	if from < 0 || from >= len(s.items) {
		return fmt.Errorf("move from %d: %w", from, ErrIndexOutOfRange)
	}
	if to < 0 || to >= len(s.items) {
		return fmt.Errorf("move to %d: %w", to, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}
	item := s.items[from]
	rest := append(s.items[:from:from], s.items[from+1:]...)
	next := make([]any, 0, len(s.items))
	next = append(next, rest[:to]...)
	next = append(next, item)
	next = append(next, rest[to:]...)
	s.items = next
	return notify(&s.emitter)
}

// Fill sets every item to v.
func (s *Sequence) Fill(v any) error {
	if len(s.items) == 0 {
		return nil
	}
	for i := range s.items {
		s.items[i] = v
	}
	return notify(&s.emitter)
}

// Serialize converts every item through elem.
func (s *Sequence) Serialize(elem Element, sl slice.Slice) (any, error) {
	out := make([]any, len(s.items))
	for i, item := range s.items {
		raw, err := elem.SerializeElement(item, sl)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = raw
	}
	return out, nil
}

// Parse restores every element of raw, which must be a list, and appends
// the results with a single notification.
func (s *Sequence) Parse(raw any, elem Element) error {
	list, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("sequence: expected list, got %T", raw)
	}
	items := make([]any, len(list))
	for i, r := range list {
		v, err := elem.RestoreElement(r)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = v
	}
	return s.Append(items...)
}
