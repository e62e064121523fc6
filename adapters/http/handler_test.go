package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	apihttp "github.com/matchboxjs/matchbox-model/adapters/http"
	"github.com/matchboxjs/matchbox-model/adapters/memory"
	"github.com/matchboxjs/matchbox-model/adapters/metrics"
	"github.com/matchboxjs/matchbox-model/core/model"
	"github.com/matchboxjs/matchbox-model/core/registry"
	"github.com/matchboxjs/matchbox-model/core/schema"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func noteRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	note := model.Define("note").
		Field("title", &schema.Property{Codec: schema.StringCodec{}, Required: true}).
		Field("views", 0).
		Slice("short", []string{"title"}).
		MustBuild()
	if err := reg.Register(note); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRecordHandler_Untyped(t *testing.T) {
	docs := memory.NewDocumentStore()
	router := apihttp.NewRouter(apihttp.NewRecordHandler(docs, nil, zerolog.Nop()), zerolog.Nop(), apihttp.RouterConfig{})

	if rec := do(t, router, "PUT", "/records/note/n1", `{"anything":[1,2]}`); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body)
	}

	rec := do(t, router, "GET", "/records/note/n1", "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"anything":[1,2]}` {
		t.Errorf("GET = %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("Content-Type") != "application/json" || rec.Header().Get("Last-Modified") == "" {
		t.Errorf("GET headers = %v", rec.Header())
	}

	rec = do(t, router, "GET", "/records/note", "")
	var keys apihttp.KeysResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &keys); err != nil || len(keys.Keys) != 1 || keys.Keys[0] != "n1" {
		t.Errorf("LIST = %s (%v)", rec.Body, err)
	}

	if rec := do(t, router, "DELETE", "/records/note/n1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	if rec := do(t, router, "GET", "/records/note/n1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d", rec.Code)
	}
	if rec := do(t, router, "DELETE", "/records/note/n1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d", rec.Code)
	}
}

func TestRecordHandler_RejectsNonObjects(t *testing.T) {
	router := apihttp.NewRouter(apihttp.NewRecordHandler(memory.NewDocumentStore(), nil, zerolog.Nop()), zerolog.Nop(), apihttp.RouterConfig{})

	for _, body := range []string{`not json`, `[1,2]`, `null`, `"text"`} {
		rec := do(t, router, "PUT", "/records/note/n1", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want 400", body, rec.Code)
		}
		var resp apihttp.ErrorResponseBody
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error.Code != "invalid_json" {
			t.Errorf("PUT %s body = %s", body, rec.Body)
		}
	}
}

func TestRecordHandler_Typed(t *testing.T) {
	docs := memory.NewDocumentStore()
	handler := apihttp.NewRecordHandler(docs, noteRegistry(t), zerolog.Nop())
	router := apihttp.NewRouter(handler, zerolog.Nop(), apihttp.RouterConfig{})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{"store", "PUT", "/records/note/n1", `{"title":"hello"}`, http.StatusNoContent, ""},
		{"read normalized", "GET", "/records/note/n1", "", http.StatusOK, `{"title":"hello","views":0}`},
		{"read slice", "GET", "/records/note/n1?slice=short", "", http.StatusOK, `{"title":"hello"}` + "\n"},
		{"unknown slice", "GET", "/records/note/n1?slice=nope", "", http.StatusBadRequest, ""},
		{"bad field type", "PUT", "/records/note/n2", `{"title":"x","views":"many"}`, http.StatusBadRequest, ""},
		{"missing required", "PUT", "/records/note/n3", `{"views":2}`, http.StatusUnprocessableEntity, ""},
		{"unknown type", "PUT", "/records/ghost/g1", `{}`, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	rec := do(t, router, "PUT", "/records/note/n3", `{"views":2}`)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Fields["title"] != string(schema.RequiredError) {
		t.Errorf("validation fields = %v", resp.Fields)
	}
	if docs.Len() != 1 {
		t.Errorf("store has %d documents, want 1", docs.Len())
	}
}

func TestRecordHandler_Types(t *testing.T) {
	router := apihttp.NewRouter(apihttp.NewRecordHandler(memory.NewDocumentStore(), noteRegistry(t), zerolog.Nop()), zerolog.Nop(), apihttp.RouterConfig{})

	rec := do(t, router, "GET", "/types", "")
	var resp apihttp.TypesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Types) != 1 || resp.Types[0].Name != "note" || len(resp.Types[0].Fields) != 2 {
		t.Errorf("types = %+v", resp.Types)
	}
	if got := resp.Types[0].Slices; len(got) != 2 || got[0] != model.DefaultSlice || got[1] != "short" {
		t.Errorf("slices = %v", got)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	router := apihttp.NewRouter(
		apihttp.NewRecordHandler(memory.NewDocumentStore(), nil, zerolog.Nop()),
		zerolog.Nop(),
		apihttp.RouterConfig{
			Middleware: []func(http.Handler) http.Handler{apihttp.NewMetricsMiddleware(m)},
			Version:    "1.2.3",
		},
	)

	rec := do(t, router, "GET", "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
	rec = do(t, router, "GET", "/version", "")
	if !strings.Contains(rec.Body.String(), `"version":"1.2.3"`) {
		t.Errorf("version = %s", rec.Body)
	}

	do(t, router, "GET", "/records/note/a", "")
	do(t, router, "GET", "/records/note/b", "")
	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/records/{type}/{key}", "404"))
	if got != 2 {
		t.Errorf("requests_total{route=/records/{type}/{key},status=404} = %v, want 2", got)
	}
}
