// Package badger provides a BadgerDB implementation of ports.DocumentStore
// for embedded deployments that want a persistent store without SQL.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/ports"
)

// Config configures the database.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in memory. Nothing survives Close.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// GCInterval is how often the value log is garbage collected. Zero
	// disables the collector. Ignored in memory.
	GCInterval time.Duration

	// GCDiscardRatio is passed to RunValueLogGC.
	GCDiscardRatio float64

	// Logger receives badger's internal log output. A disabled logger
	// silences it.
	Logger zerolog.Logger
}

// DefaultConfig returns the configuration for a persistent database.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
		Logger:         zerolog.Nop(),
	}
}

// InMemoryConfig returns the configuration for an in-memory database.
func InMemoryConfig() Config {
	return Config{InMemory: true, Logger: zerolog.Nop()}
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

// Store implements ports.DocumentStore on BadgerDB. Keys are laid out as
// "<type>\x00<key>"; values carry the update time in front of the data.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
	now    func() time.Time
	stopGC chan struct{}
	doneGC chan struct{}
}

var _ ports.DocumentStore = (*Store)(nil)

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger.GetLevel() == zerolog.Disabled {
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(badgerLogger{logger: cfg.Logger})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, logger: cfg.Logger, now: time.Now}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
			db.Close()
			return nil, fmt.Errorf("gc discard ratio %v must be between 0 and 1", cfg.GCDiscardRatio)
		}
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// OpenInMemory opens an in-memory database.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err == nil {
				s.logger.Debug().Msg("badger value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn().Err(err).Msg("badger value log GC error")
			}
		}
	}
}

func docKey(typ, key string) []byte {
	return []byte(typ + "\x00" + key)
}

func typePrefix(typ string) []byte {
	return []byte(typ + "\x00")
}

// Put creates or replaces a document.
func (s *Store) Put(ctx context.Context, typ, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(val, uint64(s.now().UnixNano()))
	copy(val[8:], data)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(typ, key), val)
	})
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// Get returns a document or ports.ErrNotFound.
func (s *Store) Get(ctx context.Context, typ, key string) (ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return ports.Document{}, err
	}
	doc := ports.Document{Type: typ, Key: key}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(typ, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < 8 {
				return fmt.Errorf("corrupt document %s/%s", typ, key)
			}
			doc.UpdatedAt = time.Unix(0, int64(binary.BigEndian.Uint64(val[:8])))
			doc.Data = append([]byte(nil), val[8:]...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ports.Document{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete removes a document or returns ports.ErrNotFound.
func (s *Store) Delete(ctx context.Context, typ, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		k := docKey(typ, key)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ports.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// List returns the keys stored for a type in ascending order.
func (s *Store) List(ctx context.Context, typ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := typePrefix(typ)
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return keys, nil
}

// Close stops the garbage collector and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}
