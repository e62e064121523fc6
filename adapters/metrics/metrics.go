// Package metrics provides Prometheus metrics for the record engine and
// its HTTP surface.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matchboxjs/matchbox-model/core/value"
	"github.com/matchboxjs/matchbox-model/ports"
)

const namespace = "matchbox"

// Collector holds all Prometheus metrics.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Storage metrics
	StorageOps      *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec
	DocumentBytes   *prometheus.HistogramVec

	// Schema metrics
	TypesLoaded prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		StorageOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total storage operations by type and result",
			},
			[]string{"op", "type", "result"},
		),
		StorageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		DocumentBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_bytes",
				Help:      "Size of documents written and read",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"direction"},
		),
		TypesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "types_loaded",
				Help:      "Number of record types in the registry",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func (c *Collector) observe(op, typ string, start time.Time, err error) {
	c.StorageOps.WithLabelValues(op, typ, result(err)).Inc()
	c.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Documents wraps a document store so every call is counted and timed.
type Documents struct {
	ports.DocumentStore
	c *Collector
}

// InstrumentDocuments decorates docs with c.
func InstrumentDocuments(docs ports.DocumentStore, c *Collector) *Documents {
	return &Documents{DocumentStore: docs, c: c}
}

// Put implements ports.DocumentStore.
func (d *Documents) Put(ctx context.Context, typ, key string, data []byte) error {
	start := time.Now()
	err := d.DocumentStore.Put(ctx, typ, key, data)
	d.c.observe("put", typ, start, err)
	if err == nil {
		d.c.DocumentBytes.WithLabelValues("write").Observe(float64(len(data)))
	}
	return err
}

// Get implements ports.DocumentStore.
func (d *Documents) Get(ctx context.Context, typ, key string) (ports.Document, error) {
	start := time.Now()
	doc, err := d.DocumentStore.Get(ctx, typ, key)
	d.c.observe("get", typ, start, err)
	if err == nil {
		d.c.DocumentBytes.WithLabelValues("read").Observe(float64(len(doc.Data)))
	}
	return doc, err
}

// Delete implements ports.DocumentStore.
func (d *Documents) Delete(ctx context.Context, typ, key string) error {
	start := time.Now()
	err := d.DocumentStore.Delete(ctx, typ, key)
	d.c.observe("delete", typ, start, err)
	return err
}

// List implements ports.DocumentStore.
func (d *Documents) List(ctx context.Context, typ string) ([]string, error) {
	start := time.Now()
	keys, err := d.DocumentStore.List(ctx, typ)
	d.c.observe("list", typ, start, err)
	return keys, err
}

// Storage wraps a record storage so Store and Fetch are counted and timed.
type Storage struct {
	next ports.Storage
	c    *Collector
}

// InstrumentStorage decorates st with c.
func InstrumentStorage(st ports.Storage, c *Collector) *Storage {
	return &Storage{next: st, c: c}
}

// Store implements ports.Storage.
func (s *Storage) Store(ctx context.Context, target ports.Target, data *value.Object) error {
	start := time.Now()
	err := s.next.Store(ctx, target, data)
	s.c.observe("store", target.TypeName(), start, err)
	return err
}

// Fetch implements ports.Storage.
func (s *Storage) Fetch(ctx context.Context, target ports.Target) (any, error) {
	start := time.Now()
	raw, err := s.next.Fetch(ctx, target)
	s.c.observe("fetch", target.TypeName(), start, err)
	return raw, err
}

// Ensure interface compliance.
var (
	_ ports.DocumentStore = (*Documents)(nil)
	_ ports.Storage       = (*Storage)(nil)
)
