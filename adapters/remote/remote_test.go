package remote_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/matchboxjs/matchbox-model/adapters/http"
	"github.com/matchboxjs/matchbox-model/adapters/memory"
	"github.com/matchboxjs/matchbox-model/adapters/remote"
	"github.com/matchboxjs/matchbox-model/core/model"
	"github.com/matchboxjs/matchbox-model/core/value"
	"github.com/matchboxjs/matchbox-model/ports"
)

func newServer(t *testing.T) (*httptest.Server, *memory.DocumentStore) {
	t.Helper()
	docs := memory.NewDocumentStore()
	handler := apihttp.NewRecordHandler(docs, nil, zerolog.Nop())
	srv := httptest.NewServer(apihttp.NewRouter(handler, zerolog.Nop(), apihttp.RouterConfig{}))
	t.Cleanup(srv.Close)
	return srv, docs
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := remote.NewClient(remote.ClientConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "secret",
		Timeout: time.Second,
		Headers: map[string]string{"X-Custom": "value"},
	})
	var out struct{ OK bool }
	if err := client.Request(context.Background(), "GET", "/anything", nil, &out); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !out.OK {
		t.Error("response not decoded")
	}

	tests := map[string]string{
		"Authorization": "Bearer secret",
		"X-Custom":      "value",
		"Accept":        "application/json",
		"Content-Type":  "application/json",
	}
	for name, want := range tests {
		if got.Get(name) != want {
			t.Errorf("header %s = %q, want %q", name, got.Get(name), want)
		}
	}
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.Error(w, "gone", http.StatusNotFound)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	client := remote.NewClient(remote.ClientConfig{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := client.Do(ctx, remote.Request{Method: "GET", Path: "/missing"})
	if !remote.IsNotFound(err) || !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("404 err = %v, want not found", err)
	}

	_, err = client.Do(ctx, remote.Request{Method: "GET", Path: "/broken"})
	var re *remote.RemoteError
	if !errors.As(err, &re) || re.StatusCode != 500 || re.Message != "boom" {
		t.Errorf("500 err = %#v", err)
	}
	if remote.IsNotFound(err) || errors.Is(err, ports.ErrNotFound) {
		t.Error("a 500 must not look like not found")
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	srv, docs := newServer(t)
	st := remote.NewStorage(remote.NewClient(remote.ClientConfig{BaseURL: srv.URL}), nil, zerolog.Nop())

	typ := model.Define("user").
		Field("id", "").
		Field("name", "").
		Field("age", 0).
		Key("id").
		Storage("remote", st).
		MustBuild()
	ctx := context.Background()

	r := typ.NewRecord()
	r.Set("id", "u/1")
	r.Set("name", "Ann")
	r.Set("age", 41)
	if err := r.Store(ctx, "remote", model.DefaultSlice); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	doc, err := docs.Get(ctx, "user", "u/1")
	if err != nil {
		t.Fatalf("document not stored under the escaped key: %v", err)
	}
	if want := `{"id":"u/1","name":"Ann","age":41}`; string(doc.Data) != want {
		t.Errorf("stored %s, want %s", doc.Data, want)
	}

	loaded := typ.NewRecord()
	loaded.Restore(map[string]any{"id": "u/1"})
	if err := loaded.Fetch(ctx, "remote"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !loaded.Equals("name", "Ann") || !loaded.Equals("age", 41) {
		t.Error("fetched record does not match")
	}

	missing := typ.NewRecord()
	missing.Restore(map[string]any{"id": "nobody"})
	if err := missing.Fetch(ctx, "remote"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Fetch missing err = %v, want ErrNotFound", err)
	}
}

type keyed string

func (k keyed) TypeName() string     { return "thing" }
func (k keyed) Key() (string, error) { return string(k), nil }

func TestStorage_Resolver(t *testing.T) {
	var method, path, custom string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, custom = r.Method, r.URL.Path, r.Header.Get("X-Tenant")
		body, _ = io.ReadAll(r.Body)
		if r.URL.Path == "/v2/things/bad" {
			w.Write([]byte("<html>"))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resolve := func(target ports.Target, data *value.Object) (remote.Request, error) {
		key, _ := target.Key()
		req := remote.Request{Path: "/v2/things/" + key, Header: http.Header{"X-Tenant": {"acme"}}}
		if data != nil {
			req.Method = http.MethodPost
		}
		return req, nil
	}
	st := remote.NewStorage(remote.NewClient(remote.ClientConfig{BaseURL: srv.URL}), resolve, zerolog.Nop())
	ctx := context.Background()

	obj := value.NewObject()
	obj.Set("a", 1)
	if err := st.Store(ctx, keyed("k1"), obj); err != nil {
		t.Fatal(err)
	}
	if method != "POST" || path != "/v2/things/k1" || custom != "acme" || string(body) != `{"a":1}` {
		t.Errorf("store sent %s %s tenant=%q body=%s", method, path, custom, body)
	}

	if _, err := st.Fetch(ctx, keyed("k1")); err != nil || method != "GET" {
		t.Errorf("fetch sent %s, err %v", method, err)
	}
	if _, err := st.Fetch(ctx, keyed("bad")); err == nil {
		t.Error("an invalid JSON response should fail the fetch")
	}

	empty := remote.NewStorage(remote.NewClient(remote.ClientConfig{BaseURL: srv.URL}),
		func(ports.Target, *value.Object) (remote.Request, error) { return remote.Request{}, nil }, zerolog.Nop())
	if _, err := empty.Fetch(ctx, keyed("k1")); err == nil {
		t.Error("a request without a path should fail")
	}
}

func TestDocumentStore(t *testing.T) {
	srv, _ := newServer(t)
	docs := remote.NewDocumentStore(remote.NewClient(remote.ClientConfig{BaseURL: srv.URL}))
	ctx := context.Background()

	if err := docs.Put(ctx, "note", "b", []byte(`{"n":2}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	docs.Put(ctx, "note", "a", []byte(`{"n":1}`))

	doc, err := docs.Get(ctx, "note", "b")
	if err != nil || string(doc.Data) != `{"n":2}` {
		t.Errorf("Get = %s, %v", doc.Data, err)
	}
	keys, err := docs.List(ctx, "note")
	if err != nil || len(keys) != 2 || keys[0] != "a" {
		t.Errorf("List = %v, %v", keys, err)
	}
	if err := docs.Delete(ctx, "note", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := docs.Get(ctx, "note", "a"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get deleted err = %v, want ErrNotFound", err)
	}
	if err := docs.Close(); err != nil {
		t.Error(err)
	}
}
