// Package events provides the observer list that records and collections
// own to announce changes.
//
// Delivery is synchronous: Emit calls every matching handler, in
// subscription order, before it returns. There is no queue and no history.
// An Emitter is owned by a single logical writer and does no locking.
package events

import (
	"errors"

	"github.com/rs/zerolog"
)

// Change is the generic change event name.
const Change = "change"

// Any subscribes a handler to every event an emitter publishes.
const Any = "*"

// MaxDepth bounds how deeply an emitter may be re-entered by its own
// handlers. Exceeding it means notifications are chasing a reference cycle.
const MaxDepth = 64

// ErrCycle is returned by Emit when MaxDepth is exceeded.
var ErrCycle = errors.New("change propagation cycle")

// FieldChange returns the field-scoped change event name, "change:<field>".
func FieldChange(field string) string {
	return Change + ":" + field
}

// Event is a published notification.
type Event struct {
	// Name is the event name (e.g. "change", "change:title").
	Name string

	// Field is the field the event is scoped to, empty for generic events.
	Field string

	// Value is the field's current value after the change, if known.
	Value any
}

// Handler processes an event. A returned error is passed back to the
// emitting caller; remaining handlers still run.
type Handler func(Event) error

type subscriber struct {
	id uint64
	fn Handler
}

// Emitter is an ordered list of subscribers keyed by event name.
// The zero value is ready to use.
type Emitter struct {
	handlers map[string][]subscriber
	nextID   uint64
	depth    int
	logger   *zerolog.Logger
}

// NewEmitter creates an emitter that logs emissions at debug level.
func NewEmitter(logger zerolog.Logger) *Emitter {
	return &Emitter{logger: &logger}
}

// SetLogger attaches a logger to the emitter.
func (e *Emitter) SetLogger(logger zerolog.Logger) {
	e.logger = &logger
}

// Subscription identifies one registered handler.
type Subscription struct {
	emitter *Emitter
	event   string
	id      uint64
}

// Unsubscribe removes the handler. It is safe to call more than once and
// on the zero Subscription.
func (s Subscription) Unsubscribe() {
	if s.emitter == nil {
		return
	}
	s.emitter.remove(s.event, s.id)
}

// Subscribe registers handler for event. Use Any to receive every event.
func (e *Emitter) Subscribe(event string, handler Handler) Subscription {
	if e.handlers == nil {
		e.handlers = make(map[string][]subscriber)
	}
	e.nextID++
	e.handlers[event] = append(e.handlers[event], subscriber{id: e.nextID, fn: handler})
	return Subscription{emitter: e, event: event, id: e.nextID}
}

func (e *Emitter) remove(event string, id uint64) {
	subs := e.handlers[event]
	for i, s := range subs {
		if s.id == id {
			// Copy so an Emit iterating the old slice is unaffected.
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(e.handlers, event)
			} else {
				e.handlers[event] = next
			}
			return
		}
	}
}

// Emit delivers ev to the handlers subscribed to ev.Name, then to the Any
// handlers. Handler errors are joined and returned.
func (e *Emitter) Emit(ev Event) error {
	if e.depth >= MaxDepth {
		if e.logger != nil {
			e.logger.Error().Str("event", ev.Name).Int("depth", e.depth).Msg("change propagation cycle")
		}
		return ErrCycle
	}
	e.depth++
	defer func() { e.depth-- }()

	if e.logger != nil {
		e.logger.Debug().Str("event", ev.Name).Str("field", ev.Field).Msg("event emitted")
	}

	matched := e.handlers[ev.Name]
	if ev.Name != Any {
		matched = append(matched[:len(matched):len(matched)], e.handlers[Any]...)
	}

	var errs []error
	for _, s := range matched {
		if err := s.fn(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasSubscribers reports whether any handler would receive event.
func (e *Emitter) HasSubscribers(event string) bool {
	return len(e.handlers[event]) > 0 || len(e.handlers[Any]) > 0
}

// Len returns the number of registered handlers across all events.
func (e *Emitter) Len() int {
	n := 0
	for _, subs := range e.handlers {
		n += len(subs)
	}
	return n
}

// Source is implemented by values that publish change events: records and
// collections.
type Source interface {
	Subscribe(event string, handler Handler) Subscription
}
