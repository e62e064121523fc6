/*
Package schema defines the per-field rulebook of a record type.

A Property describes one field: its default, whether it is required, the
codec that parses, serializes and compares its values, an optional custom
validator, and whether the field holds a plain value, a nested record or a
collection. A Schema is the ordered set of properties declared by one
record type.

# Type Definitions

Record types can be declared in YAML:

	type: article
	key: id
	strict: true

	fields:
	  id:       { type: string }
	  title:    { type: string, required: true }
	  views:    { type: int, default: 0, min: 0 }
	  status:   { type: string, values: [draft, published], default: draft }
	  author:   { type: record, to: person }
	  tags:     { type: string, collection: sequence }
	  created:  { type: date }

	slices:
	  summary: { title: true, author: { name: true } }

Field order follows the document. The "default" slice is always present and
includes every field.

# Field Types

  - string:  Text value
  - int:     Integer value
  - float:   Floating point value
  - bool:    Boolean value
  - date:    Point in time, serialized as Unix milliseconds
  - utc:     Like date, normalized to UTC
  - any:     Untyped value passed through unchanged
  - record:  Nested record of the type named by "to"

Any type can be wrapped in a collection: "sequence" (ordered list) or
"mapping" (string-keyed, insertion ordered).

# Literal Inference

Infer maps a Go literal to a property: bool, string, integers, floats,
time.Time, record types, slices and string-keyed maps. Any other shape is
rejected with ErrUnrecognizedLiteral.
*/
package schema
