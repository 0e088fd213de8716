package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/despasys/despasys/libs/rtdb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingStore struct {
	inner rtdb.Store
	sets  int
}

func (s *countingStore) Set(ctx context.Context, path string, value map[string]any) error {
	s.sets++
	return s.inner.Set(ctx, path, value)
}

func (s *countingStore) Get(ctx context.Context, path string) (map[string]any, error) {
	return s.inner.Get(ctx, path)
}

func (s *countingStore) Delete(ctx context.Context, path string) error {
	return s.inner.Delete(ctx, path)
}

func validEvent() Event {
	return Event{
		EventID:   "evt-1",
		EventType: "processes",
		Timestamp: "2026-03-01T12:00:00Z",
		Version:   "1.0",
		Source:    "web",
		TenantID:  "t1",
		Data:      map[string]any{"id": "p1", "status": "COMPLETED"},
	}
}

func TestStoreWritesCanonicalPath(t *testing.T) {
	store := rtdb.NewMemoryStore()
	r := New(store, testLogger())

	written, err := r.Store(context.Background(), validEvent())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("writes = %d", len(written))
	}
	if written[0].Path != "tenants/t1/events/processes/evt-1" {
		t.Errorf("path = %q", written[0].Path)
	}

	doc, err := store.Get(context.Background(), "tenants/t1/events/processes/evt-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["eventId"] != "evt-1" || doc["tenantId"] != "t1" {
		t.Errorf("doc = %v", doc)
	}
	data, ok := doc["data"].(map[string]any)
	if !ok || data["status"] != "COMPLETED" {
		t.Errorf("data = %v", doc["data"])
	}
}

func TestStoreFansOutNotifications(t *testing.T) {
	store := rtdb.NewMemoryStore()
	r := New(store, testLogger())

	event := validEvent()
	event.EventType = "notifications"
	event.Data = map[string]any{"title": "Processo 2026/001", "message": "Status: COMPLETED"}
	written, err := r.Store(context.Background(), event)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("writes = %d, want 2", len(written))
	}
	if written[1].Path != "tenants/t1/notifications/evt-1" {
		t.Errorf("fan-out path = %q", written[1].Path)
	}

	// The feed copy is flattened: data fields at the top level plus
	// id/createdAt/source/lastSyncedAt, no envelope.
	notif, err := store.Get(context.Background(), "tenants/t1/notifications/evt-1")
	if err != nil {
		t.Fatalf("notification doc missing: %v", err)
	}
	if notif["title"] != "Processo 2026/001" || notif["id"] != "evt-1" {
		t.Errorf("notif = %v", notif)
	}
	if notif["createdAt"] != "2026-03-01T12:00:00Z" || notif["source"] != "web" {
		t.Errorf("notif = %v", notif)
	}
	if _, ok := notif["lastSyncedAt"]; !ok {
		t.Errorf("lastSyncedAt missing: %v", notif)
	}
	if _, ok := notif["data"]; ok {
		t.Errorf("envelope leaked into feed doc: %v", notif)
	}
}

func TestStoreNoFanOutForOtherEventTypes(t *testing.T) {
	store := rtdb.NewMemoryStore()
	r := New(store, testLogger())

	if _, err := r.Store(context.Background(), validEvent()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("docs = %d, want 1", store.Len())
	}
}

func TestStoreValidatesBeforeWriting(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Event)
		want error
	}{
		{"missing tenant", func(e *Event) { e.TenantID = "" }, ErrMissingTenant},
		{"missing event type", func(e *Event) { e.EventType = "" }, ErrMissingEventType},
		{"missing event id", func(e *Event) { e.EventID = "" }, ErrMissingEventID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &countingStore{inner: rtdb.NewMemoryStore()}
			r := New(store, testLogger())

			event := validEvent()
			tc.mut(&event)
			_, err := r.Store(context.Background(), event)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if store.sets != 0 {
				t.Errorf("store touched %d times before validation failed", store.sets)
			}
		})
	}
}

func TestStoreDefaultsEnvelopeFields(t *testing.T) {
	store := rtdb.NewMemoryStore()
	r := New(store, testLogger())
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	event := validEvent()
	event.Timestamp = ""
	event.Source = ""
	event.Metadata = map[string]any{"action": "created"}
	if _, err := r.Store(context.Background(), event); err != nil {
		t.Fatalf("store: %v", err)
	}

	doc, err := store.Get(context.Background(), "tenants/t1/events/processes/evt-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Errorf("timestamp = %v", doc["timestamp"])
	}
	if doc["source"] != "web" {
		t.Errorf("source = %v", doc["source"])
	}
	if doc["action"] != "created" {
		t.Errorf("action = %v", doc["action"])
	}
}

func TestEventAction(t *testing.T) {
	e := Event{Data: map[string]any{"action": "updated"}, Metadata: map[string]any{"action": "created"}}
	if got := e.action(); got != "updated" {
		t.Errorf("action = %q, want data to win", got)
	}
	if got := (Event{}).action(); got != "unknown" {
		t.Errorf("action = %q, want unknown", got)
	}
}

func TestStorePropagatesWriteErrors(t *testing.T) {
	boom := errors.New("redis down")
	r := New(failingStore{err: boom}, testLogger())

	_, err := r.Store(context.Background(), validEvent())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

type failingStore struct{ err error }

func (s failingStore) Set(context.Context, string, map[string]any) error { return s.err }
func (s failingStore) Get(context.Context, string) (map[string]any, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, string) error { return s.err }
