package rtdb

import (
	"context"
	"errors"
	"testing"
)

func TestJoin(t *testing.T) {
	got := Join("tenants", "t1", "clients", "c-9")
	if got != "tenants/t1/clients/c-9" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestMemoryStore_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "tenants/t1/clients/c1", map[string]any{"name": "Ana", "phone": "11 99999-0000"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "tenants/t1/clients/c1", map[string]any{"name": "Ana Maria"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := store.Get(ctx, "tenants/t1/clients/c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["name"] != "Ana Maria" {
		t.Fatalf("unexpected name %v", doc["name"])
	}
	if _, ok := doc["phone"]; ok {
		t.Fatal("old fields must not survive an overwrite")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "tenants/t1/clients/absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, "tenants/t1/system/flag", map[string]any{"on": true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, "tenants/t1/system/flag"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d docs", store.Len())
	}
}
