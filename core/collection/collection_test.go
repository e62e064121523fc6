package collection

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// upperElement serializes strings in upper case and restores them in lower
// case so both directions are observable.
type upperElement struct{}

func (upperElement) SerializeElement(v any, _ slice.Slice) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %T", v)
	}
	return strings.ToUpper(s), nil
}

func (upperElement) RestoreElement(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %T", raw)
	}
	return strings.ToLower(s), nil
}

func countChanges(src events.Source) *int {
	n := new(int)
	src.Subscribe(events.Change, func(events.Event) error {
		*n++
		return nil
	})
	return n
}

func items(s *Sequence) string {
	parts := make([]string, s.Len())
	for i, v := range s.Items() {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func TestSequenceMutations(t *testing.T) {
	tests := []struct {
		name       string
		start      []any
		op         func(s *Sequence) error
		want       string
		wantEvents int
	}{
		{"append", []any{"a"}, func(s *Sequence) error { return s.Append("b", "c") }, "a,b,c", 1},
		{"append nothing", []any{"a"}, func(s *Sequence) error { return s.Append() }, "a", 0},
		{"prepend", []any{"c"}, func(s *Sequence) error { return s.Prepend("a", "b") }, "a,b,c", 1},
		{"insert middle", []any{"a", "c"}, func(s *Sequence) error { return s.Insert(1, "b") }, "a,b,c", 1},
		{"set at", []any{"a", "x"}, func(s *Sequence) error { return s.SetAt(1, "b") }, "a,b", 1},
		{"set at same", []any{"a", "b"}, func(s *Sequence) error { return s.SetAt(1, "b") }, "a,b", 0},
		{"pop", []any{"a", "b"}, func(s *Sequence) error { _, err := s.Pop(); return err }, "a", 1},
		{"pop empty", nil, func(s *Sequence) error { _, err := s.Pop(); return err }, "", 0},
		{"shift", []any{"a", "b"}, func(s *Sequence) error { _, err := s.Shift(); return err }, "b", 1},
		{"remove", []any{"a", "b", "a"}, func(s *Sequence) error { _, err := s.Remove("a"); return err }, "b,a", 1},
		{"remove missing", []any{"a"}, func(s *Sequence) error { _, err := s.Remove("z"); return err }, "a", 0},
		{"remove all", []any{"a", "b", "c", "d"}, func(s *Sequence) error { _, err := s.RemoveAll("a", "c", "z"); return err }, "b,d", 1},
		{"remove all none", []any{"a"}, func(s *Sequence) error { _, err := s.RemoveAll("z"); return err }, "a", 0},
		{"reverse", []any{"a", "b", "c"}, func(s *Sequence) error { return s.Reverse() }, "c,b,a", 1},
		{"reverse single", []any{"a"}, func(s *Sequence) error { return s.Reverse() }, "a", 0},
		{"sort", []any{"c", "a", "b"}, func(s *Sequence) error {
			return s.Sort(func(a, b any) bool { return a.(string) < b.(string) })
		}, "a,b,c", 1},
		{"move forward", []any{"a", "b", "c"}, func(s *Sequence) error { return s.Move(0, 2) }, "b,c,a", 1},
		{"move back", []any{"a", "b", "c"}, func(s *Sequence) error { return s.Move(2, 0) }, "c,a,b", 1},
		{"fill", []any{"a", "b"}, func(s *Sequence) error { return s.Fill("x") }, "x,x", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSequence(tt.start...)
			n := countChanges(s)
			if err := tt.op(s); err != nil {
				t.Fatalf("op failed: %v", err)
			}
			if got := items(s); got != tt.want {
				t.Errorf("items = %q, want %q", got, tt.want)
			}
			if *n != tt.wantEvents {
				t.Errorf("change events = %d, want %d", *n, tt.wantEvents)
			}
		})
	}
}

func TestSequenceSplice(t *testing.T) {
	s := NewSequence("a", "b", "c", "d")
	n := countChanges(s)

	removed, err := s.Splice(1, 2, "x")
	if err != nil {
		t.Fatalf("Splice failed: %v", err)
	}
	if len(removed) != 2 || removed[0] != "b" || removed[1] != "c" {
		t.Errorf("removed = %v", removed)
	}
	if got := items(s); got != "a,x,d" {
		t.Errorf("items = %q", got)
	}

	if _, err := s.Splice(2, 10); err != nil {
		t.Fatalf("Splice clamp failed: %v", err)
	}
	if got := items(s); got != "a,x" {
		t.Errorf("items after clamp = %q", got)
	}
	if *n != 2 {
		t.Errorf("change events = %d, want 2", *n)
	}
}

func TestSequenceBounds(t *testing.T) {
	s := NewSequence("a")
	if err := s.Insert(5, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Insert err = %v", err)
	}
	if err := s.SetAt(-1, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetAt err = %v", err)
	}
	if err := s.Move(0, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Move err = %v", err)
	}
	if _, err := s.Splice(4, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Splice err = %v", err)
	}
	if s.At(3) != nil {
		t.Error("At out of range should be nil")
	}
}

func TestSequenceSerializeParse(t *testing.T) {
	s := NewSequence("a", "b")
	raw, err := s.Serialize(upperElement{}, slice.All())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	list := raw.([]any)
	if len(list) != 2 || list[0] != "A" || list[1] != "B" {
		t.Errorf("serialized = %v", list)
	}

	restored := NewSequence()
	n := countChanges(restored)
	if err := restored.Parse([]any{"X", "Y", "Z"}, upperElement{}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := items(restored); got != "x,y,z" {
		t.Errorf("parsed items = %q", got)
	}
	if *n != 1 {
		t.Errorf("Parse should notify once, got %d", *n)
	}

	if err := restored.Parse("nope", upperElement{}); err == nil {
		t.Error("Parse of non-list should fail")
	}
	if err := restored.Parse([]any{1}, upperElement{}); err == nil {
		t.Error("Parse with failing element should fail")
	}
	if restored.Len() != 3 {
		t.Errorf("failed Parse mutated the sequence: %q", items(restored))
	}
}

func TestMappingOperations(t *testing.T) {
	m := NewMapping()
	n := countChanges(m)

	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 1)
	if *n != 2 {
		t.Errorf("events after sets = %d, want 2", *n)
	}
	m.Set("b", 3)
	if *n != 3 {
		t.Errorf("events after rebinding = %d, want 3", *n)
	}

	if keys := m.Keys(); len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
	if vals := m.Values(); vals[0] != 3 || vals[1] != 2 {
		t.Errorf("Values() = %v", vals)
	}
	if k, ok := m.KeyOf(2); !ok || k != "a" {
		t.Errorf("KeyOf(2) = %q, %v", k, ok)
	}
	if got := m.Filter(func(_ string, v any) bool { return v.(int) > 2 }); len(got) != 1 || got[0] != "b" {
		t.Errorf("Filter = %v", got)
	}

	ok, err := m.Delete("b")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if m.Has("b") || m.Len() != 1 {
		t.Errorf("Delete left key behind: %v", m.Keys())
	}
	if ok, _ := m.Delete("b"); ok {
		t.Error("second Delete should report false")
	}

	m.Clear()
	before := *n
	m.Clear()
	if *n != before {
		t.Error("clearing an empty mapping should not notify")
	}
	if m.Len() != 0 {
		t.Errorf("Len after Clear = %d", m.Len())
	}
}

func TestMappingSerializeParse(t *testing.T) {
	raw := value.NewObject()
	raw.Set("z", "ONE")
	raw.Set("a", "TWO")

	m := NewMapping()
	n := countChanges(m)
	if err := m.Parse(raw, upperElement{}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if *n != 1 {
		t.Errorf("Parse events = %d, want 1", *n)
	}
	if keys := m.Keys(); keys[0] != "z" || keys[1] != "a" {
		t.Errorf("Parse lost order: %v", keys)
	}
	if v, _ := m.Get("z"); v != "one" {
		t.Errorf("Get(z) = %v", v)
	}

	out, err := m.Serialize(upperElement{}, slice.All())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	obj := out.(*value.Object)
	if keys := obj.Keys(); keys[0] != "z" || keys[1] != "a" {
		t.Errorf("serialized keys = %v", keys)
	}
	if v, _ := obj.Get("a"); v != "TWO" {
		t.Errorf("serialized a = %v", v)
	}

	plain := NewMapping()
	if err := plain.Parse(map[string]any{"b": "X", "a": "Y"}, upperElement{}); err != nil {
		t.Fatalf("Parse map failed: %v", err)
	}
	if keys := plain.Keys(); keys[0] != "a" || keys[1] != "b" {
		t.Errorf("map keys not sorted: %v", keys)
	}
	if err := plain.Parse([]any{}, upperElement{}); err == nil {
		t.Error("Parse of list should fail")
	}
}

func TestMutatorsReturnPropagationErrors(t *testing.T) {
	s := NewSequence()
	boom := errors.New("boom")
	s.Subscribe(events.Change, func(events.Event) error { return boom })
	if err := s.Append(1); !errors.Is(err, boom) {
		t.Errorf("Append err = %v, want boom", err)
	}
	if s.Len() != 1 {
		t.Error("mutation should apply even if a handler fails")
	}
}
