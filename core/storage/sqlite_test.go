package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchboxjs/matchbox-model/ports"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if err := store.Put(ctx, "product", "p2", []byte(`{"name":"Gadget"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "product", "p1", []byte(`{"name":"Widget"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "order", "o1", []byte(`{}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	doc, err := store.Get(ctx, "product", "p1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(doc.Data) != `{"name":"Widget"}` || doc.Type != "product" || doc.Key != "p1" {
		t.Errorf("Get = %+v", doc)
	}
	if !doc.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", doc.UpdatedAt, fixed)
	}

	// Put replaces
	if err := store.Put(ctx, "product", "p1", []byte(`{"name":"Widget 2"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	doc, _ = store.Get(ctx, "product", "p1")
	if string(doc.Data) != `{"name":"Widget 2"}` {
		t.Errorf("after replace data = %s", doc.Data)
	}

	keys, err := store.List(ctx, "product")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p1" || keys[1] != "p2" {
		t.Errorf("List = %v, want [p1 p2]", keys)
	}

	if err := store.Delete(ctx, "product", "p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "product", "p1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "product", "p1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListEmpty(t *testing.T) {
	store := newTestStore(t)
	keys, err := store.List(context.Background(), "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if keys == nil || len(keys) != 0 {
		t.Errorf("List = %#v, want empty non-nil slice", keys)
	}
}
