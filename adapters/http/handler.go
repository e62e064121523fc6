// Package http serves a document store over HTTP. The routes form the
// contract the remote storage adapter consumes:
//
//	GET    /records/{type}          {"keys": [...]}
//	GET    /records/{type}/{key}    the stored JSON document, 404 when absent
//	PUT    /records/{type}/{key}    store the request body, 204
//	DELETE /records/{type}/{key}    204, 404 when absent
//
// When the handler knows the record types, PUT bodies are restored into a
// record before they are stored and GET accepts ?slice= to project the
// document through a named slice.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/core/model"
	"github.com/matchboxjs/matchbox-model/ports"
)

// maxBodyBytes caps request documents.
const maxBodyBytes = 10 << 20

// ErrorResponseBody is the body of every error response.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// KeysResponse lists the keys of a type.
type KeysResponse struct {
	Keys []string `json:"keys"`
}

// TypesResponse lists the known record types.
type TypesResponse struct {
	Types []TypeInfo `json:"types"`
}

// TypeInfo describes a record type.
type TypeInfo struct {
	Name    string   `json:"name"`
	Extends string   `json:"extends,omitempty"`
	Key     string   `json:"key,omitempty"`
	Fields  []string `json:"fields"`
	Slices  []string `json:"slices"`
}

// TypeLookup resolves record types by name. *registry.Registry
// implements it.
type TypeLookup interface {
	Get(name string) (*model.Type, bool)
	List() []*model.Type
}

// RecordHandler serves records from a document store.
type RecordHandler struct {
	docs   ports.DocumentStore
	types  TypeLookup
	logger zerolog.Logger
}

// NewRecordHandler creates a handler over docs. types may be nil, in which
// case documents are stored as opaque JSON objects.
func NewRecordHandler(docs ports.DocumentStore, types TypeLookup, logger zerolog.Logger) *RecordHandler {
	return &RecordHandler{docs: docs, types: types, logger: logger}
}

// Routes mounts the record routes on r.
func (h *RecordHandler) Routes(r chi.Router) {
	r.Get("/types", h.ListTypes)
	r.Route("/records/{type}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{key}", h.Get)
		r.Put("/{key}", h.Put)
		r.Delete("/{key}", h.Delete)
	})
}

// List returns the keys stored for a type.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	typ := param(r, "type")
	keys, err := h.docs.List(r.Context(), typ)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeysResponse{Keys: keys})
}

// Get returns a stored document, optionally projected through a slice.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	typ, key := param(r, "type"), param(r, "key")
	doc, err := h.docs.Get(r.Context(), typ, key)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	sliceName := r.URL.Query().Get("slice")
	if sliceName == "" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", doc.UpdatedAt.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write(doc.Data)
		return
	}

	rec, ok := h.record(w, typ)
	if !ok {
		return
	}
	if err := rec.Restore(json.RawMessage(doc.Data)); err != nil {
		h.logger.Error().Err(err).Str("type", typ).Str("key", key).Msg("stored document does not restore")
		writeError(w, http.StatusInternalServerError, "corrupt_document", err.Error())
		return
	}
	obj, err := rec.Slice(sliceName)
	if errors.Is(err, model.ErrUnknownSlice) {
		writeError(w, http.StatusBadRequest, "unknown_slice", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// Put stores the request body under the key.
func (h *RecordHandler) Put(w http.ResponseWriter, r *http.Request) {
	typ, key := param(r, "type"), param(r, "key")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read request body")
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil || probe == nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "body must be a JSON object")
		return
	}

	if h.types != nil {
		rec, ok := h.record(w, typ)
		if !ok {
			return
		}
		if err := rec.Restore(json.RawMessage(body)); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
			return
		}
		if !rec.Validate() {
			writeJSON(w, http.StatusUnprocessableEntity, struct {
				ErrorResponseBody
				Fields map[string]string `json:"fields"`
			}{
				ErrorResponseBody: ErrorResponseBody{Error: ErrorDetail{Code: "validation_failed", Message: "record has invalid fields"}},
				Fields:            fieldErrors(rec),
			})
			return
		}
		// store the normalized default slice
		if body, err = json.Marshal(rec); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
	}

	if err := h.docs.Put(r.Context(), typ, key, body); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a document.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	typ, key := param(r, "type"), param(r, "key")
	if err := h.docs.Delete(r.Context(), typ, key); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTypes describes the known record types.
func (h *RecordHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	resp := TypesResponse{Types: []TypeInfo{}}
	if h.types != nil {
		for _, t := range h.types.List() {
			info := TypeInfo{Name: t.TypeName(), Key: t.KeyField(), Fields: t.Fields(), Slices: t.Slices()}
			if p := t.Parent(); p != nil {
				info.Extends = p.TypeName()
			}
			resp.Types = append(resp.Types, info)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RecordHandler) record(w http.ResponseWriter, typ string) (*model.Record, bool) {
	if h.types == nil {
		writeError(w, http.StatusBadRequest, "no_types", "record types are not configured")
		return nil, false
	}
	t, ok := h.types.Get(typ)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_type", "unknown record type "+typ)
		return nil, false
	}
	return t.NewRecord(), true
}

func (h *RecordHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}
	h.logger.Error().Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("document store error")
	writeError(w, http.StatusInternalServerError, "store_error", "document store failed")
}

// param returns a decoded path parameter. chi matches on the raw path, so
// escaped slashes in keys arrive encoded.
func param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func fieldErrors(rec *model.Record) map[string]string {
	out := make(map[string]string)
	for field, kind := range rec.Errors() {
		out[field] = string(kind)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
}

// Liveness returns a simple liveness check.
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// VersionHandler returns a handler reporting version.
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "matchbox-model"})
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	MetricsHandler http.Handler  // Optional handler for /metrics
	MetricsPath    string        // /metrics when empty
	Middleware     []func(http.Handler) http.Handler
	Version        string
	Timeout        time.Duration // request timeout, 60s when zero
}

// NewRouter builds the HTTP router around the record handler.
func NewRouter(records *RecordHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}

	r.Get("/health", Liveness)
	r.Get("/version", VersionHandler(cfg.Version))
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	records.Routes(r)
	return r
}
