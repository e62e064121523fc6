package bootstrap

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/adapters/badger"
	"github.com/matchboxjs/matchbox-model/adapters/idgen"
	"github.com/matchboxjs/matchbox-model/adapters/memory"
	"github.com/matchboxjs/matchbox-model/adapters/metrics"
	"github.com/matchboxjs/matchbox-model/adapters/remote"
	"github.com/matchboxjs/matchbox-model/config"
	"github.com/matchboxjs/matchbox-model/core/model"
	"github.com/matchboxjs/matchbox-model/core/registry"
	"github.com/matchboxjs/matchbox-model/core/storage"
	"github.com/matchboxjs/matchbox-model/ports"
)

// StorageName is the name under which every loaded type reaches the
// configured document store.
const StorageName = "documents"

// OpenDocuments opens the document store selected by cfg.Driver.
func OpenDocuments(cfg config.StorageConfig, logger zerolog.Logger) (ports.DocumentStore, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.NewDocumentStore(), nil

	case config.DriverSQLite:
		st, err := storage.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("dsn", cfg.DSN).Msg("sqlite document store opened")
		return st, nil

	case config.DriverBadger:
		bcfg := badger.DefaultConfig(cfg.Path)
		if cfg.InMemory {
			bcfg = badger.InMemoryConfig()
		}
		bcfg.Logger = logger.With().Str("component", "badger").Logger()
		st, err := badger.Open(bcfg)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("badger document store opened")
		return st, nil

	case config.DriverRemote:
		client := remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.Remote.URL,
			APIKey:  cfg.Remote.APIKey,
			Timeout: cfg.Remote.Timeout,
			Headers: cfg.Remote.Headers,
		})
		logger.Info().Str("url", cfg.Remote.URL).Msg("remote document store configured")
		return remote.NewDocumentStore(client), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// NewRecordStorage adapts docs to the record storage port. m may be nil.
func NewRecordStorage(docs ports.DocumentStore, m *metrics.Collector, logger zerolog.Logger) ports.Storage {
	var st ports.Storage = storage.NewBridge(docs, logger)
	if m != nil {
		st = metrics.InstrumentStorage(st, m)
	}
	return st
}

// LoadTypes builds a fresh registry from the definitions in cfg.Dir. An
// empty Dir yields an empty registry.
func LoadTypes(cfg config.SchemaConfig, st ports.Storage, logger zerolog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if cfg.Dir == "" {
		return reg, nil
	}

	ids, err := idgen.ByName(cfg.IDs)
	if err != nil {
		return nil, err
	}
	opts := registry.Options{
		Storages: map[string]ports.Storage{StorageName: st},
		IDs:      ids,
		Strict:   cfg.Strict,
		Logger:   logger,
	}
	if err := reg.LoadDir(cfg.Dir, opts); err != nil {
		return nil, err
	}

	names := make([]string, 0, reg.Len())
	for _, t := range reg.List() {
		names = append(names, t.TypeName())
	}
	logger.Info().Strs("types", names).Str("dir", cfg.Dir).Msg("record types loaded")
	return reg, nil
}

// Types is the live set of record types. Reload replaces the whole
// registry at once so readers never see a partial schema.
type Types struct {
	cur atomic.Pointer[registry.Registry]
}

// Registry returns the current registry.
func (t *Types) Registry() *registry.Registry {
	if r := t.cur.Load(); r != nil {
		return r
	}
	return registry.New()
}

// Get returns the named type.
func (t *Types) Get(name string) (*model.Type, bool) {
	return t.Registry().Get(name)
}

// List returns the current types.
func (t *Types) List() []*model.Type {
	return t.Registry().List()
}

func (t *Types) swap(r *registry.Registry) {
	t.cur.Store(r)
}
