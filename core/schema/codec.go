package schema

import (
	"fmt"
	"time"

	"github.com/matchboxjs/matchbox-model/core/slice"
	"github.com/matchboxjs/matchbox-model/core/value"
)

// Codec converts the values of one field type between their raw encoded
// form and their in-memory form.
type Codec interface {
	// Type returns the field type name (e.g. "string", "record").
	Type() string

	// Accepts reports whether a non-empty in-memory value has the right shape.
	Accepts(v any) bool

	// Equal compares two in-memory values.
	Equal(a, b any) bool

	// Parse converts a raw value into its in-memory form.
	Parse(raw any) (any, error)

	// Serialize converts an in-memory value into its raw form.
	Serialize(v any, s slice.Slice) (any, error)
}

// RecordType is a record type a property can nest.
type RecordType interface {
	// TypeName returns the registered type name.
	TypeName() string

	// New creates an empty record of this type.
	New() Instance

	// IsInstance reports whether v is a record of this type or a subtype.
	IsInstance(v any) bool
}

// Instance is a nested record value.
type Instance interface {
	SliceWith(s slice.Slice) (*value.Object, error)
	Restore(raw any) error
}

// Field type names.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeDate   = "date"
	TypeUTC    = "utc"
	TypeAny    = "any"
	TypeRecord = "record"
)

// CodecFor returns the codec for a primitive type name.
func CodecFor(typeName string) (Codec, bool) {
	switch typeName {
	case TypeString:
		return StringCodec{}, true
	case TypeInt:
		return IntCodec{}, true
	case TypeFloat:
		return FloatCodec{}, true
	case TypeBool:
		return BoolCodec{}, true
	case TypeDate:
		return DateCodec{}, true
	case TypeUTC:
		return DateCodec{UTC: true}, true
	case TypeAny:
		return AnyCodec{}, true
	}
	return nil, false
}

func mismatch(typeName string, raw any) error {
	return fmt.Errorf("expected %s, got %T", typeName, raw)
}

// AnyCodec passes values through unchanged.
type AnyCodec struct{}

func (AnyCodec) Type() string                                { return TypeAny }
func (AnyCodec) Accepts(any) bool                            { return true }
func (AnyCodec) Equal(a, b any) bool                         { return value.Equal(a, b) }
func (AnyCodec) Parse(raw any) (any, error)                  { return raw, nil }
func (AnyCodec) Serialize(v any, _ slice.Slice) (any, error) { return v, nil }

// StringCodec handles text values.
type StringCodec struct{}

func (StringCodec) Type() string { return TypeString }

func (StringCodec) Accepts(v any) bool {
	_, ok := v.(string)
	return ok
}

func (StringCodec) Equal(a, b any) bool { return value.Equal(a, b) }

func (StringCodec) Parse(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, mismatch(TypeString, raw)
	}
	return s, nil
}

func (StringCodec) Serialize(v any, _ slice.Slice) (any, error) { return v, nil }

// BoolCodec handles boolean values.
type BoolCodec struct{}

func (BoolCodec) Type() string { return TypeBool }

func (BoolCodec) Accepts(v any) bool {
	_, ok := v.(bool)
	return ok
}

func (BoolCodec) Equal(a, b any) bool { return value.Equal(a, b) }

func (BoolCodec) Parse(raw any) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, mismatch(TypeBool, raw)
	}
	return b, nil
}

func (BoolCodec) Serialize(v any, _ slice.Slice) (any, error) { return v, nil }

// IntCodec handles integers. Values are held as int; any Go integer type is
// accepted and compared numerically.
type IntCodec struct{}

func (IntCodec) Type() string { return TypeInt }

func (IntCodec) Accepts(v any) bool { return value.IsInteger(v) }

func (IntCodec) Equal(a, b any) bool {
	x, okA := value.ToInt64(a)
	y, okB := value.ToInt64(b)
	if okA && okB {
		return x == y
	}
	return value.Equal(a, b)
}

// Parse accepts integral floats, which is how JSON numbers decode.
func (IntCodec) Parse(raw any) (any, error) {
	n, ok := value.ToInt64(raw)
	if !ok {
		return nil, mismatch(TypeInt, raw)
	}
	return int(n), nil
}

func (IntCodec) Serialize(v any, _ slice.Slice) (any, error) { return v, nil }

// FloatCodec handles floating point numbers, held as float64.
type FloatCodec struct{}

func (FloatCodec) Type() string { return TypeFloat }

func (FloatCodec) Accepts(v any) bool { return value.IsFloat(v) || value.IsInteger(v) }

func (FloatCodec) Equal(a, b any) bool {
	x, okA := value.ToFloat64(a)
	y, okB := value.ToFloat64(b)
	if okA && okB {
		return x == y
	}
	return value.Equal(a, b)
}

func (FloatCodec) Parse(raw any) (any, error) {
	f, ok := value.ToFloat64(raw)
	if !ok {
		return nil, mismatch(TypeFloat, raw)
	}
	return f, nil
}

func (FloatCodec) Serialize(v any, _ slice.Slice) (any, error) { return v, nil }

// DateCodec handles time.Time values. They compare by instant and
// serialize to Unix milliseconds. With UTC set, parsed values are
// normalized to UTC.
type DateCodec struct {
	UTC bool
}

func (c DateCodec) Type() string {
	if c.UTC {
		return TypeUTC
	}
	return TypeDate
}

func (DateCodec) Accepts(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func (DateCodec) Equal(a, b any) bool {
	x, okA := a.(time.Time)
	y, okB := b.(time.Time)
	if okA && okB {
		return x.Equal(y)
	}
	return value.Equal(a, b)
}

// Parse accepts Unix milliseconds, RFC 3339 strings and time.Time.
func (c DateCodec) Parse(raw any) (any, error) {
	var t time.Time
	switch r := raw.(type) {
	case time.Time:
		t = r
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, r)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.Type(), err)
		}
		t = parsed
	default:
		ms, ok := value.ToInt64(raw)
		if !ok {
			return nil, mismatch(c.Type(), raw)
		}
		t = time.UnixMilli(ms)
	}
	if c.UTC {
		t = t.UTC()
	}
	return t, nil
}

func (c DateCodec) Serialize(v any, _ slice.Slice) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, mismatch(c.Type(), v)
	}
	return t.UnixMilli(), nil
}

// RecordCodec handles nested records of one type.
type RecordCodec struct {
	Record RecordType
}

func (RecordCodec) Type() string { return TypeRecord }

func (c RecordCodec) Accepts(v any) bool { return c.Record.IsInstance(v) }

// Equal compares nested records by identity.
func (RecordCodec) Equal(a, b any) bool { return value.Equal(a, b) }

// Parse leaves raw data as is; the record is built by Property.Instantiate.
func (RecordCodec) Parse(raw any) (any, error) { return raw, nil }

func (c RecordCodec) Serialize(v any, s slice.Slice) (any, error) {
	inst, ok := v.(Instance)
	if !ok {
		return nil, mismatch(c.Record.TypeName(), v)
	}
	return inst.SliceWith(s)
}
