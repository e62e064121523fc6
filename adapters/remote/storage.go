package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/core/value"
	"github.com/matchboxjs/matchbox-model/ports"
)

// Resolver builds the request for a record. data is nil for fetches. A
// request without a method gets PUT for stores and GET for fetches.
type Resolver func(target ports.Target, data *value.Object) (Request, error)

// RecordPath returns the default route of a record,
// /records/{type}/{key}.
func RecordPath(typeName, key string) string {
	return "/records/" + url.PathEscape(typeName) + "/" + url.PathEscape(key)
}

// DefaultResolver addresses records by type name and key.
func DefaultResolver(target ports.Target, _ *value.Object) (Request, error) {
	key, err := target.Key()
	if err != nil {
		return Request{}, err
	}
	if key == "" {
		return Request{}, fmt.Errorf("%s: record has no key", target.TypeName())
	}
	return Request{Path: RecordPath(target.TypeName(), key)}, nil
}

// Storage implements ports.Storage against a remote service.
type Storage struct {
	client  *Client
	resolve Resolver
	logger  zerolog.Logger
}

var _ ports.Storage = (*Storage)(nil)

// NewStorage creates a remote storage. A nil resolve uses DefaultResolver.
func NewStorage(client *Client, resolve Resolver, logger zerolog.Logger) *Storage {
	if resolve == nil {
		resolve = DefaultResolver
	}
	return &Storage{client: client, resolve: resolve, logger: logger}
}

// Store sends the serialized record.
func (s *Storage) Store(ctx context.Context, target ports.Target, data *value.Object) error {
	req, err := s.request(target, data, http.MethodPut)
	if err != nil {
		return err
	}
	req.Body = data
	if _, err := s.client.Do(ctx, req); err != nil {
		s.logger.Warn().Err(err).Str("type", target.TypeName()).Msg("failed to store to remote storage")
		return err
	}
	return nil
}

// Fetch loads the record payload. The response must be valid JSON.
func (s *Storage) Fetch(ctx context.Context, target ports.Target) (any, error) {
	req, err := s.request(target, nil, http.MethodGet)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Do(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", target.TypeName()).Msg("failed to fetch remote storage")
		return nil, err
	}
	if !json.Valid(data) {
		s.logger.Warn().Str("type", target.TypeName()).Msg("failed to fetch remote storage: invalid response")
		return nil, fmt.Errorf("%s: remote storage returned invalid JSON", target.TypeName())
	}
	return json.RawMessage(data), nil
}

func (s *Storage) request(target ports.Target, data *value.Object, method string) (Request, error) {
	req, err := s.resolve(target, data)
	if err != nil {
		return Request{}, fmt.Errorf("resolve request: %w", err)
	}
	if req.Path == "" {
		return Request{}, fmt.Errorf("%s: unable to send request: missing path", target.TypeName())
	}
	if req.Method == "" {
		req.Method = method
	}
	return req, nil
}
