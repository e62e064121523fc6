// Package bootstrap wires the record service together: logger, document
// store, record types, metrics and the HTTP server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apihttp "github.com/matchboxjs/matchbox-model/adapters/http"
	"github.com/matchboxjs/matchbox-model/adapters/metrics"
	"github.com/matchboxjs/matchbox-model/config"
	"github.com/matchboxjs/matchbox-model/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Documents  ports.DocumentStore
	Types      *Types
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	storage ports.Storage
	holder  *config.Holder
}

// Options holds optional settings for New.
type Options struct {
	// Version is reported by /version.
	Version string

	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer
}

// New creates and initializes the application from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := SetupLogger(cfg.Logging, out)
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("initializing record service")

	a := &App{Logger: logger, Config: cfg}

	var promReg *prometheus.Registry
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(promReg)
		logger.Info().Msg("prometheus metrics enabled")
	}

	docs, err := OpenDocuments(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	if a.Metrics != nil {
		docs = metrics.InstrumentDocuments(docs, a.Metrics)
	}
	a.Documents = docs
	a.storage = NewRecordStorage(docs, a.Metrics, logger)

	a.Types = &Types{}
	loaded, err := LoadTypes(cfg.Schema, a.storage, logger)
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("load record types: %w", err)
	}
	a.Types.swap(loaded)
	if a.Metrics != nil {
		a.Metrics.TypesLoaded.Set(float64(loaded.Len()))
	}

	routerCfg := apihttp.RouterConfig{Version: opts.Version, Timeout: cfg.Server.WriteTimeout}
	if a.Metrics != nil {
		routerCfg.Middleware = append(routerCfg.Middleware, apihttp.NewMetricsMiddleware(a.Metrics))
		routerCfg.MetricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{EnableOpenMetrics: true})
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	records := apihttp.NewRecordHandler(docs, a.Types, logger)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      apihttp.NewRouter(records, logger, routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Reload applies the reloadable parts of cfg: the log level and the record
// types. A schema that fails to load leaves the current types in place.
func (a *App) Reload(cfg *config.Config) error {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	reg, err := LoadTypes(cfg.Schema, a.storage, a.Logger)
	if err != nil {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
		a.Logger.Error().Err(err).Msg("record types reload failed, keeping old types")
		return fmt.Errorf("reload record types: %w", err)
	}
	a.Types.swap(reg)
	a.Config = cfg

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
		a.Metrics.TypesLoaded.Set(float64(reg.Len()))
	}
	a.Logger.Info().Int("types", reg.Len()).Msg("record types reloaded")
	return nil
}

// Watch reloads the app whenever holder reloads its file. It listens to
// file changes and SIGHUP.
func (a *App) Watch(holder *config.Holder) error {
	a.holder = holder
	holder.OnChange(func(cfg *config.Config) {
		_ = a.Reload(cfg)
	})
	if err := holder.WatchFile(); err != nil {
		return err
	}
	holder.WatchSignals()
	return nil
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Int("types", a.Types.Registry().Len()).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops the server and closes the document store.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
		a.holder = nil
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	var err error
	if a.Documents != nil {
		if err = a.Documents.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("document store close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return err
}

// SetupLogger builds the root logger from the logging configuration.
func SetupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
