package model

import (
	"errors"
	"fmt"

	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/schema"
)

var (
	// ErrUnknownField is returned when a strict record is asked about a
	// field its type does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownSlice is returned for slice names the type does not declare.
	ErrUnknownSlice = errors.New("unknown slice")

	// ErrUnknownStorage is returned for storage names the type does not declare.
	ErrUnknownStorage = errors.New("unknown storage")

	// ErrParse is returned when Restore is given malformed data.
	ErrParse = errors.New("parse error")

	// ErrNoKey is returned by Key for types without a key field.
	ErrNoKey = errors.New("type has no key field")

	// ErrCycle is returned when an assignment would make a record reach
	// itself, and when change propagation runs into a cycle.
	ErrCycle = events.ErrCycle
)

// UnknownFieldKind is recorded by Validate for undeclared fields of strict
// records.
const UnknownFieldKind schema.ErrorKind = "unknown_field"

// FieldError reports access to an undeclared field.
type FieldError struct {
	Type  string
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: unknown field %q", e.Type, e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrUnknownField
}

// ParseError reports malformed input to Restore. Field is empty when the
// payload as a whole could not be decoded.
type ParseError struct {
	Type  string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: restore: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s: restore field %q: %v", e.Type, e.Field, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
