package schema

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/matchboxjs/matchbox-model/core/value"
)

// Error kinds reported by field constraints.
const (
	MinError     ErrorKind = "min"
	MaxError     ErrorKind = "max"
	PatternError ErrorKind = "pattern"
	EnumError    ErrorKind = "enum"
)

// sized is implemented by collections.
type sized interface {
	Len() int
}

// constraints turns the field's min, max, pattern and values settings into
// a validator. It returns nil when the field has none.
func (f Field) constraints() (func(any) ErrorKind, error) {
	var checks []func(any) ErrorKind

	if f.Min != nil || f.Max != nil {
		lo, hi := f.Min, f.Max
		checks = append(checks, func(v any) ErrorKind {
			n, ok := measure(v)
			if !ok {
				return Valid
			}
			if lo != nil && n < *lo {
				return MinError
			}
			if hi != nil && n > *hi {
				return MaxError
			}
			return Valid
		})
	}

	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %q pattern: %w", f.Name, err)
		}
		checks = append(checks, func(v any) ErrorKind {
			s, ok := v.(string)
			if !ok || re.MatchString(s) {
				return Valid
			}
			return PatternError
		})
	}

	if len(f.Values) > 0 {
		allowed := make(map[string]bool, len(f.Values))
		for _, v := range f.Values {
			allowed[v] = true
		}
		checks = append(checks, func(v any) ErrorKind {
			s, ok := v.(string)
			if !ok || allowed[s] {
				return Valid
			}
			return EnumError
		})
	}

	if len(checks) == 0 {
		return nil, nil
	}
	return func(v any) ErrorKind {
		if value.IsEmpty(v) {
			return Valid
		}
		for _, check := range checks {
			if kind := check(v); kind != Valid {
				return kind
			}
		}
		return Valid
	}, nil
}

// measure returns the number a min/max constraint applies to: the value of
// a number, the length of a string or the size of a collection.
func measure(v any) (float64, bool) {
	switch t := v.(type) {
	case string:
		return float64(utf8.RuneCountInString(t)), true
	case sized:
		return float64(t.Len()), true
	}
	return value.ToFloat64(v)
}
