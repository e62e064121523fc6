package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/matchboxjs/matchbox-model/core/value"
)

// ErrUnrecognizedLiteral is returned by Infer for literal shapes that do
// not map to a field type.
var ErrUnrecognizedLiteral = errors.New("unrecognized literal")

// Infer builds a property from a default literal:
//
//	bool                 bool field
//	string               string field
//	int, uint, ...       int field
//	float32, float64     float field
//	time.Time            date field
//	RecordType           nested record field, defaulting to a new record
//	slice                sequence of the type inferred from the first element
//	map[string]any       mapping of the type inferred from the first key's value
//
// Slices and maps of plain values become the collection's default payload.
// An empty slice or map holds untyped elements.
func Infer(name string, literal any) (*Property, error) {
	switch v := literal.(type) {
	case nil:
		return nil, fmt.Errorf("field %q: %w: nil", name, ErrUnrecognizedLiteral)
	case bool:
		return &Property{Name: name, Codec: BoolCodec{}, Default: v}, nil
	case string:
		return &Property{Name: name, Codec: StringCodec{}, Default: v}, nil
	case float32:
		return &Property{Name: name, Codec: FloatCodec{}, Default: float64(v)}, nil
	case float64:
		return &Property{Name: name, Codec: FloatCodec{}, Default: v}, nil
	case time.Time:
		return &Property{Name: name, Codec: DateCodec{}, Default: v}, nil
	case RecordType:
		return &Property{
			Name:        name,
			Codec:       RecordCodec{Record: v},
			DefaultFunc: func() any { return v.New() },
		}, nil
	case *value.Object:
		var first any
		if keys := v.Keys(); len(keys) > 0 {
			first, _ = v.Get(keys[0])
		}
		return inferCollection(name, Mapping, first, v.Len(), v)
	case map[string]any:
		var first any
		if len(v) > 0 {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			first = v[keys[0]]
		}
		return inferCollection(name, Mapping, first, len(v), v)
	}

	if value.IsInteger(literal) {
		n, _ := value.ToInt64(literal)
		return &Property{Name: name, Codec: IntCodec{}, Default: int(n)}, nil
	}

	rv := reflect.ValueOf(literal)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		list := toList(literal).([]any)
		var first any
		if len(list) > 0 {
			first = list[0]
		}
		return inferCollection(name, Sequence, first, len(list), list)
	}

	return nil, fmt.Errorf("field %q: %w: %T", name, ErrUnrecognizedLiteral, literal)
}

func inferCollection(name string, kind CollectionKind, first any, n int, payload any) (*Property, error) {
	if n == 0 {
		return &Property{Name: name, Collection: kind, Codec: AnyCodec{}}, nil
	}
	elem, err := Infer(name, first)
	if err != nil {
		return nil, err
	}
	if elem.Collection != NoCollection {
		return nil, fmt.Errorf("field %q: %w: nested collection", name, ErrUnrecognizedLiteral)
	}
	p := &Property{Name: name, Collection: kind, Codec: elem.Codec}
	if elem.Kind() != NestedRecord {
		p.Default = payload
	}
	return p, nil
}
