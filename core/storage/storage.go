// Package storage connects records to document stores. A Bridge turns any
// ports.DocumentStore into the ports.Storage a record type is declared
// with; SQLiteStore is the document store the engine ships with.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/core/value"
	"github.com/matchboxjs/matchbox-model/ports"
)

// ErrEmptyKey is returned when a record is stored or fetched without a
// key value.
var ErrEmptyKey = errors.New("record key is empty")

// Bridge stores records as JSON documents keyed by type name and record
// key.
type Bridge struct {
	docs   ports.DocumentStore
	logger zerolog.Logger
}

var _ ports.Storage = (*Bridge)(nil)

// NewBridge wraps a document store.
func NewBridge(docs ports.DocumentStore, logger zerolog.Logger) *Bridge {
	return &Bridge{docs: docs, logger: logger}
}

// Documents returns the underlying document store.
func (b *Bridge) Documents() ports.DocumentStore {
	return b.docs
}

// Store encodes data and writes it under the target's key.
func (b *Bridge) Store(ctx context.Context, target ports.Target, data *value.Object) error {
	key, err := keyOf(target)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", target.TypeName(), key, err)
	}
	if err := b.docs.Put(ctx, target.TypeName(), key, raw); err != nil {
		return fmt.Errorf("put %s/%s: %w", target.TypeName(), key, err)
	}
	b.logger.Debug().Str("type", target.TypeName()).Str("key", key).Int("bytes", len(raw)).Msg("document stored")
	return nil
}

// Fetch reads the target's document. The payload is returned as
// json.RawMessage for the record to restore.
func (b *Bridge) Fetch(ctx context.Context, target ports.Target) (any, error) {
	key, err := keyOf(target)
	if err != nil {
		return nil, err
	}
	doc, err := b.docs.Get(ctx, target.TypeName(), key)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", target.TypeName(), key, err)
	}
	return json.RawMessage(doc.Data), nil
}

// Remove deletes the target's document.
func (b *Bridge) Remove(ctx context.Context, target ports.Target) error {
	key, err := keyOf(target)
	if err != nil {
		return err
	}
	if err := b.docs.Delete(ctx, target.TypeName(), key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", target.TypeName(), key, err)
	}
	return nil
}

func keyOf(target ports.Target) (string, error) {
	key, err := target.Key()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%s: %w", target.TypeName(), ErrEmptyKey)
	}
	return key, nil
}
