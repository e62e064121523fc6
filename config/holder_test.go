package config_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/config"
)

const baseConfig = `
schema:
  dir: "./types"
logging:
  level: "info"
`

func newHolder(t *testing.T) (*config.Holder, string) {
	t.Helper()
	path := writeConfig(t, baseConfig)
	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	t.Cleanup(h.Stop)
	return h, path
}

func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
}

func TestHolder_NewHolderInvalid(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: floppy\n")
	if _, err := config.NewHolder(path, zerolog.Nop()); err == nil {
		t.Error("NewHolder should reject an invalid file")
	}
}

func TestHolder_ReloadNotifies(t *testing.T) {
	h, path := newHolder(t)

	if got := h.Get(); got.Schema.Dir != "./types" || got.Logging.Level != "info" {
		t.Fatalf("initial config = %+v", got)
	}

	var order []string
	var seen *config.Config
	h.OnChange(func(cfg *config.Config) { order = append(order, "first"); seen = cfg })
	h.OnChange(func(*config.Config) { order = append(order, "second") })

	rewrite(t, path, "schema:\n  dir: ./other\n  strict: true\nlogging:\n  level: debug\n")
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("listener order = %v", order)
	}
	if seen != h.Get() {
		t.Error("listener should receive the config Get returns")
	}
	if got := h.Get(); got.Schema.Dir != "./other" || !got.Schema.Strict || got.Logging.Level != "debug" {
		t.Errorf("reloaded config = %+v", got)
	}
}

func TestHolder_ReloadKeepsOldOnError(t *testing.T) {
	h, path := newHolder(t)
	called := false
	h.OnChange(func(*config.Config) { called = true })

	rewrite(t, path, "storage:\n  driver: remote\n")
	if err := h.Reload(); err == nil {
		t.Fatal("Reload should fail for a remote driver without a URL")
	}
	if called {
		t.Error("listeners must not run after a failed reload")
	}
	if got := h.Get(); got.Storage.Driver != config.DriverMemory || got.Schema.Dir != "./types" {
		t.Errorf("should keep old config, got %+v", got)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	h, path := newHolder(t)

	changed := make(chan *config.Config, 8)
	h.OnChange(func(cfg *config.Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	rewrite(t, path, "schema:\n  dir: ./watched\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Schema.Dir == "./watched" {
				return
			}
		case <-deadline:
			t.Fatal("file watcher did not trigger a reload")
		}
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, _ := newHolder(t)
	if err := h.WatchFile(); err != nil {
		t.Fatal(err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, _ := newHolder(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestDiff(t *testing.T) {
	old := &config.Config{}
	old.Schema.Dir = "a"
	old.Server.Port = 8080
	old.Logging.Level = "info"

	same := *old
	if changes := config.Diff(old, &same); len(changes) != 0 {
		t.Errorf("Diff of equal configs = %v", changes)
	}

	next := *old
	next.Schema.Dir = "b"
	next.Server.Port = 9090

	changes := config.Diff(old, &next)
	want := []config.Change{
		{Field: "schema.dir", Old: "a", New: "b", Reloadable: true},
		{Field: "server.port", Old: "8080", New: "9090", Reloadable: false},
	}
	if len(changes) != len(want) {
		t.Fatalf("Diff = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

func TestFieldLists(t *testing.T) {
	reloadable := config.ReloadableFields()
	fixed := config.NonReloadableFields()

	for _, e := range []string{"schema.dir", "logging.level"} {
		if !contains(reloadable, e) {
			t.Errorf("%s not in ReloadableFields", e)
		}
	}
	for _, e := range []string{"server.host", "server.port", "storage.driver", "storage.dsn"} {
		if !contains(fixed, e) {
			t.Errorf("%s not in NonReloadableFields", e)
		}
	}
	for _, f := range fixed {
		if contains(reloadable, f) {
			t.Errorf("%s is listed as both reloadable and not", f)
		}
	}

	// every field Diff reports is classified
	old, next := &config.Config{}, &config.Config{}
	next.Schema = config.SchemaConfig{Dir: "x", Strict: true, IDs: "uuidv7"}
	next.Logging.Level = "debug"
	next.Server = config.ServerConfig{Host: "h", Port: 1}
	next.Storage = config.StorageConfig{Driver: "sqlite", DSN: "d", Path: "p", Remote: config.RemoteConfig{URL: "u"}}
	next.Metrics.Enabled = true
	for _, c := range config.Diff(old, next) {
		list := fixed
		if c.Reloadable {
			list = reloadable
		}
		if !contains(list, c.Field) {
			t.Errorf("%s reported by Diff but not classified", c.Field)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
