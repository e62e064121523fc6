package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// settleDelay coalesces the burst of events an editor save produces into
// one reload.
const settleDelay = 50 * time.Millisecond

// Holder serves the current configuration and reloads it from its file.
type Holder struct {
	current atomic.Pointer[Config]
	path    string
	logger  zerolog.Logger

	mu        sync.Mutex // guards listeners and serializes reloads
	listeners []func(*Config)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the file at path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		path:   absPath,
		logger: logger.With().Str("component", "config").Logger(),
		stopCh: make(chan struct{}),
	}
	h.current.Store(cfg)
	return h, nil
}

// Get returns the current configuration. The returned value must not be
// modified.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Path returns the absolute path of the watched file.
func (h *Holder) Path() string {
	return h.path
}

// Reload reads the file again. A file that fails to load or validate
// leaves the current configuration in place.
func (h *Holder) Reload() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	prev := h.current.Swap(next)
	for _, c := range Diff(prev, next) {
		ev := h.logger.Info()
		if !c.Reloadable {
			ev = h.logger.Warn()
		}
		ev.Str("field", c.Field).Str("old", c.Old).Str("new", c.New).Bool("reloadable", c.Reloadable).Msg("config changed")
	}

	for _, fn := range h.listeners {
		fn(next)
	}
	h.logger.Info().Str("path", h.path).Msg("configuration reloaded")
	return nil
}

// OnChange registers fn to run after every successful reload, in
// registration order.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// WatchFile reloads whenever the file is written or replaced. The parent
// directory is watched so atomic renames are seen.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop(watcher)

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP")
				_ = h.Reload()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop(w *fsnotify.Watcher) {
	name := filepath.Base(h.path)
	settle := time.NewTimer(time.Hour)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			h.logger.Debug().Str("op", ev.Op.String()).Msg("config file event")
			settle.Reset(settleDelay)

		case <-settle.C:
			_ = h.Reload()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// Change is one field that differs between two configurations.
type Change struct {
	Field      string
	Old, New   string
	Reloadable bool
}

// Diff lists the tracked fields that differ between old and new, in a
// stable order.
func Diff(old, new *Config) []Change {
	var out []Change
	add := func(field string, o, n any, reloadable bool) {
		a, b := fmt.Sprint(o), fmt.Sprint(n)
		if a != b {
			out = append(out, Change{Field: field, Old: a, New: b, Reloadable: reloadable})
		}
	}

	add("schema.dir", old.Schema.Dir, new.Schema.Dir, true)
	add("schema.strict", old.Schema.Strict, new.Schema.Strict, true)
	add("schema.ids", old.Schema.IDs, new.Schema.IDs, true)
	add("logging.level", old.Logging.Level, new.Logging.Level, true)

	add("server.host", old.Server.Host, new.Server.Host, false)
	add("server.port", old.Server.Port, new.Server.Port, false)
	add("storage.driver", old.Storage.Driver, new.Storage.Driver, false)
	add("storage.dsn", old.Storage.DSN, new.Storage.DSN, false)
	add("storage.path", old.Storage.Path, new.Storage.Path, false)
	add("storage.remote.url", old.Storage.Remote.URL, new.Storage.Remote.URL, false)
	add("metrics.enabled", old.Metrics.Enabled, new.Metrics.Enabled, false)
	return out
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"schema.dir",
		"schema.strict",
		"schema.ids",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"storage.driver",
		"storage.dsn",
		"storage.path",
		"storage.remote.url",
		"metrics.enabled",
	}
}
