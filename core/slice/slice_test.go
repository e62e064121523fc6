package slice

import "testing"

func TestWildcard(t *testing.T) {
	for _, spec := range []any{"*", true} {
		s, err := New(spec)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", spec, err)
		}
		if !s.IsWildcard() {
			t.Errorf("New(%v) is not a wildcard", spec)
		}
		if !s.Includes("anything") {
			t.Error("wildcard should include every field")
		}
		if !s.Sub("anything").IsWildcard() {
			t.Error("wildcard should hand down a wildcard")
		}
	}
}

func TestNamed(t *testing.T) {
	s, err := New(map[string]any{
		"name":    true,
		"address": map[string]any{"city": true},
		"tags":    "*",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		field string
		want  bool
	}{
		{"name", true},
		{"address", true},
		{"tags", true},
		{"email", false},
	}
	for _, tt := range tests {
		if got := s.Includes(tt.field); got != tt.want {
			t.Errorf("Includes(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}

	addr := s.Sub("address")
	if addr.IsWildcard() {
		t.Error("address sub-slice should be named")
	}
	if !addr.Includes("city") || addr.Includes("street") {
		t.Errorf("address sub-slice fields = %v", addr.Fields())
	}
	if !s.Sub("name").IsWildcard() {
		t.Error("true spec should become a wildcard")
	}
	if s.Sub("email").Includes("x") {
		t.Error("excluded field should yield an empty sub-slice")
	}
}

func TestNewVariants(t *testing.T) {
	s := MustNew([]string{"a", "b"})
	if got := s.Fields(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Fields() = %v", got)
	}

	s = MustNew(map[string]bool{"a": true, "b": false})
	if !s.Includes("a") || s.Includes("b") {
		t.Errorf("map[string]bool slice fields = %v", s.Fields())
	}

	s = MustNew([]any{"a", "c"})
	if !s.Includes("a") || !s.Includes("c") || s.Includes("b") {
		t.Errorf("[]any slice fields = %v", s.Fields())
	}

	if n, _ := New(nil); n.Includes("a") {
		t.Error("nil spec should exclude everything")
	}
	if n, _ := New(false); n.Includes("a") {
		t.Error("false spec should exclude everything")
	}
}

func TestNewInvalid(t *testing.T) {
	for _, spec := range []any{"name", 42, map[string]any{"a": 1}, []any{"a", 2}} {
		if _, err := New(spec); err == nil {
			t.Errorf("New(%v) should fail", spec)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("MustNew should panic on invalid spec")
		}
	}()
	MustNew("bad")
}
