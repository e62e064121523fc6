package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/matchboxjs/matchbox-model/ports"
)

const createDocumentsSQL = `
CREATE TABLE IF NOT EXISTS documents (
	type       TEXT NOT NULL,
	key        TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (type, key)
)`

// SQLiteStore implements ports.DocumentStore with SQLite. All documents
// share one table keyed by (type, key).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.DocumentStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and creates the documents
// table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s, err := NewSQLiteStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreFromDB uses an existing connection.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(createDocumentsSQL); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Put inserts or replaces a document.
func (s *SQLiteStore) Put(ctx context.Context, typ, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (type, key, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (type, key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, typ, key, string(data), s.now().UTC())
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// Get returns a document or ports.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, typ, key string) (ports.Document, error) {
	doc := ports.Document{Type: typ, Key: key}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE type = ? AND key = ?`, typ, key,
	).Scan(&data, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Document{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Document{}, fmt.Errorf("get document: %w", err)
	}
	doc.Data = []byte(data)
	return doc, nil
}

// Delete removes a document or returns ports.ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, typ, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE type = ? AND key = ?`, typ, key)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// List returns the keys stored for a type in ascending order.
func (s *SQLiteStore) List(ctx context.Context, typ string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM documents WHERE type = ? ORDER BY key`, typ)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
