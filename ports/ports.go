// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/ and core/storage.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/matchboxjs/matchbox-model/core/value"
)

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Record Persistence Ports
// -----------------------------------------------------------------------------

// Target identifies the record a storage call is about.
type Target interface {
	// TypeName returns the record's type name.
	TypeName() string

	// Key returns the value of the record's key field.
	Key() (string, error)
}

// Storage moves serialized records to and from a backend.
type Storage interface {
	// Store persists the serialized view of target.
	Store(ctx context.Context, target Target, data *value.Object) error

	// Fetch returns the raw payload for target, suitable for Record.Restore.
	Fetch(ctx context.Context, target Target) (any, error)
}

// Document is a stored record payload.
type Document struct {
	Type      string
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// DocumentStore persists JSON documents addressed by type and key.
type DocumentStore interface {
	// Put creates or replaces a document.
	Put(ctx context.Context, typeName, key string, data []byte) error

	// Get returns a document. Missing documents yield ErrNotFound.
	Get(ctx context.Context, typeName, key string) (Document, error)

	// Delete removes a document. Missing documents yield ErrNotFound.
	Delete(ctx context.Context, typeName, key string) error

	// List returns the keys stored for a type, sorted.
	List(ctx context.Context, typeName string) ([]string, error)

	// Close releases the store's resources.
	Close() error
}
