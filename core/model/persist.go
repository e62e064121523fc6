package model

import (
	"context"
	"fmt"

	"github.com/matchboxjs/matchbox-model/core/schema"
	"github.com/matchboxjs/matchbox-model/core/value"
	"github.com/matchboxjs/matchbox-model/ports"
)

var _ ports.Target = (*Record)(nil)

// Key returns the current value of the type's key field as a string. An
// unset key yields "".
func (r *Record) Key() (string, error) {
	if r.typ.key == "" {
		return "", fmt.Errorf("%s: %w", r.typ.name, ErrNoKey)
	}
	v, err := r.Get(r.typ.key)
	if err != nil {
		return "", err
	}
	if value.IsEmpty(v) {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// Store serializes the record through sliceName and hands it to the
// storage registered as storageName. A keyed record without a key gets a
// generated one first, committed as an original value.
func (r *Record) Store(ctx context.Context, storageName, sliceName string) error {
	st, err := r.typ.storage(storageName)
	if err != nil {
		return err
	}

	if r.typ.key != "" {
		key, err := r.Key()
		if err != nil {
			return err
		}
		if key == "" {
			if p, _ := r.typ.schema.Lookup(r.typ.key); p.Type() != schema.TypeString && p.Type() != schema.TypeAny {
				return fmt.Errorf("%s: key field %q is empty", r.typ.name, r.typ.key)
			}
			if err := r.Set(r.typ.key, r.typ.newKey()); err != nil {
				return fmt.Errorf("%s: assign key: %w", r.typ.name, err)
			}
			if err := r.Commit(r.typ.key); err != nil {
				return err
			}
		}
	}

	data, err := r.Slice(sliceName)
	if err != nil {
		return err
	}

	log := r.typ.logger.With().Str("type", r.typ.name).Str("storage", storageName).Logger()
	if err := st.Store(ctx, r, data); err != nil {
		log.Error().Err(err).Msg("store failed")
		return fmt.Errorf("%s: store via %q: %w", r.typ.name, storageName, err)
	}
	log.Debug().Str("slice", sliceName).Msg("record stored")
	return nil
}

// Fetch loads the record from the storage registered as storageName and
// restores the payload.
func (r *Record) Fetch(ctx context.Context, storageName string) error {
	st, err := r.typ.storage(storageName)
	if err != nil {
		return err
	}

	log := r.typ.logger.With().Str("type", r.typ.name).Str("storage", storageName).Logger()
	raw, err := st.Fetch(ctx, r)
	if err != nil {
		log.Error().Err(err).Msg("fetch failed")
		return fmt.Errorf("%s: fetch via %q: %w", r.typ.name, storageName, err)
	}
	if err := r.Restore(raw); err != nil {
		return err
	}
	log.Debug().Msg("record fetched")
	return nil
}
