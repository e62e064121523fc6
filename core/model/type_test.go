package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/matchboxjs/matchbox-model/core/schema"
)

func TestExtendKeepsParentOrder(t *testing.T) {
	base := Define("base").Field("a", 1).Field("b", 2).Field("c", 3).MustBuild()
	sub := base.Extend("sub").Field("d", 4).MustBuild()

	baseFields, subFields := base.Fields(), sub.Fields()
	if len(baseFields) != 3 || strings.Join(baseFields, ",") != "a,b,c" {
		t.Errorf("base fields = %v, want [a b c]", baseFields)
	}
	if len(subFields) != 4 || strings.Join(subFields, ",") != "a,b,c,d" {
		t.Errorf("sub fields = %v, want [a b c d]", subFields)
	}

	baseFields[0] = "mutated"
	if base.Fields()[0] != "a" {
		t.Error("Fields() exposed the internal order list")
	}
}

func TestExtendOverrides(t *testing.T) {
	base := Define("base").
		Field("a", 1).
		Slice("short", []string{"a"}).
		Strict(true).
		MustBuild()
	sub := base.Extend("sub").
		Field("a", "text").
		Field("b", true).
		Slice("short", []string{"b"}).
		MustBuild()

	if p, _ := sub.Property("a"); p.Type() != schema.TypeString {
		t.Errorf("sub a type = %q, want string", p.Type())
	}
	if p, _ := base.Property("a"); p.Type() != schema.TypeInt {
		t.Error("override leaked into the parent")
	}
	if !sub.Strict() || sub.Parent() != base {
		t.Error("subtype should inherit strictness and link its parent")
	}

	r := sub.NewRecord()
	r.Set("b", false)
	short, err := r.Slice("short")
	if err != nil {
		t.Fatal(err)
	}
	if keys := short.Keys(); len(keys) != 1 || keys[0] != "b" {
		t.Errorf("short slice keys = %v", keys)
	}
	if names := base.Slices(); len(names) != 2 || names[0] != DefaultSlice {
		t.Errorf("base slices = %v", names)
	}

	if !base.IsInstance(r) || !sub.IsInstance(r) {
		t.Error("subtype record should be an instance of both types")
	}
	if sub.IsInstance(base.NewRecord()) || base.IsInstance("x") {
		t.Error("IsInstance matched a foreign value")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		wantErr error
	}{
		{"no name", Define("").Field("a", 1), nil},
		{"bad literal", Define("t").Field("a", struct{}{}), schema.ErrUnrecognizedLiteral},
		{"nil literal", Define("t").Field("a", nil), schema.ErrUnrecognizedLiteral},
		{"bad slice", Define("t").Field("a", 1).Slice("s", 42), nil},
		{"undeclared key", Define("t").Field("a", 1).Key("id"), nil},
		{"nil storage", Define("t").Field("a", 1).Storage("db", nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	b := Define("once").Field("a", 1)
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err == nil {
		t.Error("building twice should fail")
	}
}

func TestBuiltTypeIsSealed(t *testing.T) {
	b := Define("sealed").Field("a", 1)
	typ, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	r := typ.NewRecord()

	b.Field("z", 2).Slice("short", []string{"a"}).Strict(true).Key("a")

	if fields := typ.Fields(); strings.Join(fields, ",") != "a" {
		t.Errorf("fields = %v, want [a]", fields)
	}
	if slices := typ.Slices(); strings.Join(slices, ",") != DefaultSlice {
		t.Errorf("slices = %v, want [default]", slices)
	}
	if typ.Strict() || typ.KeyField() != "" {
		t.Error("strictness and key must not change after Build")
	}
	if keys := r.Keys(); strings.Join(keys, ",") != "a" {
		t.Errorf("existing record keys = %v, want [a]", keys)
	}

	_, err = b.Build()
	if err == nil || !strings.Contains(err.Error(), `field z not applied`) {
		t.Errorf("Build after changes = %v", err)
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustBuild should panic on an invalid definition")
		}
	}()
	Define("t").Field("a", nil).MustBuild()
}
