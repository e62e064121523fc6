package value

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestIsEmpty(t *testing.T) {
	var nilPtr *Object
	var nilSlice []any
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"nil pointer", nilPtr, true},
		{"nil slice", nilSlice, true},
		{"zero int", 0, false},
		{"empty string", "", false},
		{"false", false, false},
		{"empty object", NewObject(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.v); got != tt.want {
				t.Errorf("IsEmpty(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a, b := NewObject(), NewObject()
	now := time.Now()
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"int vs int64", 1, int64(1), false},
		{"strings", "x", "x", true},
		{"pointer identity", a, a, true},
		{"distinct pointers", a, b, false},
		{"slices deep", []any{1, "a"}, []any{1, "a"}, true},
		{"slices differ", []any{1}, []any{2}, false},
		{"nil and nil pointer", nil, (*Object)(nil), true},
		{"nil and zero", nil, 0, false},
		{"times", now, now, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		v      any
		want   int64
		wantOK bool
	}{
		{int(3), 3, true},
		{uint8(4), 4, true},
		{float64(5), 5, true},
		{float64(5.5), 0, false},
		{json.Number("7"), 7, true},
		{"7", 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt64(tt.v)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ToInt64(%v) = %d, %v; want %d, %v", tt.v, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestObjectOrder(t *testing.T) {
	o := NewObject()
	o.Set("b", 1)
	o.Set("a", 2)
	o.Set("b", 3)

	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("Keys() = %v, want [b a]", keys)
	}
	if v, _ := o.Get("b"); v != 3 {
		t.Errorf("Get(b) = %v, want 3", v)
	}

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"b":3,"a":2}` {
		t.Errorf("Marshal = %s", data)
	}

	o.Delete("b")
	if o.Len() != 1 || o.Has("b") {
		t.Errorf("Delete did not remove key: %v", o.Keys())
	}
}

func TestDecodeKeepsOrder(t *testing.T) {
	v, err := Decode([]byte(`{"z": 1, "a": {"y": [1, {"k": true}], "b": null}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("Decode returned %T", v)
	}
	if keys := obj.Keys(); keys[0] != "z" || keys[1] != "a" {
		t.Errorf("keys = %v", keys)
	}
	nested, _ := obj.Get("a")
	nobj := nested.(*Object)
	if keys := nobj.Keys(); keys[0] != "y" || keys[1] != "b" {
		t.Errorf("nested keys = %v", keys)
	}
	arr, _ := nobj.Get("y")
	if list := arr.([]any); len(list) != 2 {
		t.Errorf("array len = %d", len(list))
	}

	out, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"z":1,"a":{"y":[1,{"k":true}],"b":null}}` {
		t.Errorf("round trip = %s", out)
	}
}

func TestDecodeNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{`1`, float64(1)},
		{`-2.5`, -2.5},
		{`9007199254740992`, float64(9007199254740992)},
		{`9007199254740993`, int64(9007199254740993)},
		{`-9007199254740993`, int64(-9007199254740993)},
		{`1e3`, float64(1000)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode(%s) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated input")
	}
	if _, err := Decode([]byte(`{} {}`)); !errors.Is(err, ErrTrailingData) {
		t.Errorf("err = %v, want ErrTrailingData", err)
	}
	var o Object
	if err := json.Unmarshal([]byte(`[1]`), &o); err == nil {
		t.Error("expected error unmarshalling array into Object")
	}
}

func TestFromMapAndMap(t *testing.T) {
	o := FromMap(map[string]any{"b": map[string]any{"x": 1}, "a": []any{map[string]any{"y": 2}}})
	if keys := o.Keys(); keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys = %v, want sorted", keys)
	}
	nested, _ := o.Get("b")
	if _, ok := nested.(*Object); !ok {
		t.Errorf("nested map not converted: %T", nested)
	}
	plain := o.Map()
	if _, ok := plain["b"].(map[string]any); !ok {
		t.Errorf("Map() nested = %T", plain["b"])
	}
}

func TestObjectYAML(t *testing.T) {
	o := NewObject()
	o.Set("name", "x")
	o.Set("count", 2)
	out, err := yaml.Marshal(o)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	if string(out) != "name: x\ncount: 2\n" {
		t.Errorf("yaml = %q", out)
	}
}
