// Package collection provides the ordered containers a record field can
// hold: Sequence, an ordered list, and Mapping, an insertion-ordered map with
// unique string keys.
//
// Each collection owns an events.Emitter and publishes exactly one
// events.Change per mutating call that actually altered it. Mutators return
// the error produced while delivering that notification, which is how a
// propagation cycle (events.ErrCycle) reaches the caller.
package collection

import (
	"errors"

	"github.com/matchboxjs/matchbox-model/core/events"
	"github.com/matchboxjs/matchbox-model/core/slice"
)

// ErrIndexOutOfRange is returned for positional operations outside the
// sequence bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// Element converts single collection elements between their raw and
// in-memory forms. Property descriptors implement it.
type Element interface {
	SerializeElement(v any, s slice.Slice) (any, error)
	RestoreElement(raw any) (any, error)
}

// Collection is the behaviour shared by Sequence and Mapping.
type Collection interface {
	events.Source

	// Len returns the number of elements.
	Len() int

	// Serialize converts every element through elem, applying s.
	Serialize(elem Element, s slice.Slice) (any, error)

	// Parse restores raw elements through elem and adds them.
	Parse(raw any, elem Element) error

	// Children returns the current elements.
	Children() []any
}

var (
	_ Collection = (*Sequence)(nil)
	_ Collection = (*Mapping)(nil)
)

func notify(e *events.Emitter) error {
	return e.Emit(events.Event{Name: events.Change})
}
