package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/matchboxjs/matchbox-model/ports"
)

// DocumentStore implements ports.DocumentStore on the record routes of a
// remote service.
type DocumentStore struct {
	client *Client
}

var _ ports.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a document store backed by client.
func NewDocumentStore(client *Client) *DocumentStore {
	return &DocumentStore{client: client}
}

// Put stores a document.
func (d *DocumentStore) Put(ctx context.Context, typ, key string, data []byte) error {
	_, err := d.client.Do(ctx, Request{Method: http.MethodPut, Path: RecordPath(typ, key), Body: data})
	return err
}

// Get fetches a document. A 404 matches ports.ErrNotFound.
func (d *DocumentStore) Get(ctx context.Context, typ, key string) (ports.Document, error) {
	data, err := d.client.Do(ctx, Request{Method: http.MethodGet, Path: RecordPath(typ, key)})
	if err != nil {
		return ports.Document{}, err
	}
	return ports.Document{Type: typ, Key: key, Data: data, UpdatedAt: time.Now()}, nil
}

// Delete removes a document.
func (d *DocumentStore) Delete(ctx context.Context, typ, key string) error {
	_, err := d.client.Do(ctx, Request{Method: http.MethodDelete, Path: RecordPath(typ, key)})
	return err
}

// List returns the keys of a type.
func (d *DocumentStore) List(ctx context.Context, typ string) ([]string, error) {
	var resp struct {
		Keys []string `json:"keys"`
	}
	if err := d.client.Request(ctx, http.MethodGet, "/records/"+url.PathEscape(typ), nil, &resp); err != nil {
		return nil, fmt.Errorf("list %s: %w", typ, err)
	}
	if resp.Keys == nil {
		resp.Keys = []string{}
	}
	return resp.Keys, nil
}

// Close is a no-op.
func (d *DocumentStore) Close() error {
	return nil
}
