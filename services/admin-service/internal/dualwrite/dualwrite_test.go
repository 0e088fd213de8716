package dualwrite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/despasys/despasys/libs/rtdb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStore struct{ err error }

func (s failingStore) Set(context.Context, string, map[string]any) error { return s.err }
func (s failingStore) Get(context.Context, string) (map[string]any, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, string) error { return s.err }

type fakeAdmin struct {
	existing map[string]bool
	created  []string
	checks   int
	err      error
}

func (a *fakeAdmin) TopicExists(_ context.Context, topic string) (bool, error) {
	a.checks++
	if a.err != nil {
		return false, a.err
	}
	return a.existing[topic], nil
}

func (a *fakeAdmin) CreateTopic(_ context.Context, topic string) error {
	if a.err != nil {
		return a.err
	}
	a.created = append(a.created, topic)
	if a.existing == nil {
		a.existing = map[string]bool{}
	}
	a.existing[topic] = true
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func newTestPublisher(admin *fakeAdmin, writer *fakeWriter) *Publisher {
	ids := 0
	return &Publisher{
		admin:  admin,
		writer: writer,
		logger: testLogger(),
		prefix: "despasys",
		source: "web",
		now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		newID: func() string {
			ids++
			return map[int]string{1: "evt-1", 2: "evt-2", 3: "evt-3"}[ids]
		},
	}
}

func TestMirrorSyncWritesProjectionWithLastSynced(t *testing.T) {
	store := rtdb.NewMemoryStore()
	m := NewMirror(store, testLogger())
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }

	res := m.Sync(context.Background(), "t1", EntityClients, "c1", map[string]any{"name": "Maria"})
	if !res.OK {
		t.Fatalf("expected ok result, got %+v", res)
	}

	doc, err := store.Get(context.Background(), "tenants/t1/clients/c1")
	if err != nil {
		t.Fatalf("get mirrored doc: %v", err)
	}
	if doc["name"] != "Maria" {
		t.Errorf("name = %v", doc["name"])
	}
	if ms, ok := doc["lastSynced"].(float64); !ok || int64(ms) != 1700000000000 {
		t.Errorf("lastSynced = %v", doc["lastSynced"])
	}
}

func TestMirrorSyncOverwritesFully(t *testing.T) {
	store := rtdb.NewMemoryStore()
	m := NewMirror(store, testLogger())

	ctx := context.Background()
	m.Sync(ctx, "t1", EntityClients, "c1", map[string]any{"name": "Maria", "phone": "11999990000"})
	m.Sync(ctx, "t1", EntityClients, "c1", map[string]any{"name": "Maria Souza"})

	doc, err := store.Get(ctx, "tenants/t1/clients/c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["name"] != "Maria Souza" {
		t.Errorf("name = %v", doc["name"])
	}
	if _, stale := doc["phone"]; stale {
		t.Error("old phone field survived the overwrite")
	}
}

func TestMirrorFailureDoesNotPropagate(t *testing.T) {
	m := NewMirror(failingStore{err: errors.New("redis down")}, testLogger())
	svc := NewService(m, nil, testLogger(), false)

	fx, err := svc.Record(context.Background(), "t1", EntityClients, "c1", map[string]any{"name": "x"}, nil)
	if err != nil {
		t.Fatalf("mirror failure must not surface as an error, got %v", err)
	}
	if fx.Mirror.OK || fx.Mirror.Error == "" {
		t.Errorf("mirror result should carry the failure: %+v", fx.Mirror)
	}
	if !fx.Event.Skipped {
		t.Errorf("event should be skipped with no publisher: %+v", fx.Event)
	}
}

func TestPublishEventCreatesTopicLazily(t *testing.T) {
	admin := &fakeAdmin{}
	writer := &fakeWriter{}
	p := newTestPublisher(admin, writer)

	ctx := context.Background()
	if _, err := p.PublishEvent(ctx, "t1", EntityProcesses, map[string]any{"id": "p1"}, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(admin.created) != 1 || admin.created[0] != "despasys-tenant-t1-processes" {
		t.Fatalf("created topics = %v", admin.created)
	}

	// Second publish finds the topic and must not create it again.
	if _, err := p.PublishEvent(ctx, "t1", EntityProcesses, map[string]any{"id": "p2"}, nil); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if len(admin.created) != 1 {
		t.Errorf("topic recreated: %v", admin.created)
	}
	if admin.checks != 2 {
		t.Errorf("existence must be checked on every publish, checks = %d", admin.checks)
	}
}

func TestPublishEventEnvelope(t *testing.T) {
	admin := &fakeAdmin{}
	writer := &fakeWriter{}
	p := newTestPublisher(admin, writer)

	id, err := p.PublishEvent(context.Background(), "t1", EntityClients,
		map[string]any{"id": "c1", "name": "Maria"}, map[string]any{"userId": "u1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "evt-1" {
		t.Errorf("eventId = %q", id)
	}
	if len(writer.msgs) != 1 {
		t.Fatalf("messages written = %d", len(writer.msgs))
	}

	msg := writer.msgs[0]
	if msg.Topic != "despasys-tenant-t1-clients" {
		t.Errorf("topic = %q", msg.Topic)
	}
	if string(msg.Key) != "evt-1" {
		t.Errorf("key = %q", msg.Key)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.EventID != "evt-1" || env.EventType != "clients" || env.TenantID != "t1" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Version != "1.0" || env.Source != "web" {
		t.Errorf("version/source = %q/%q", env.Version, env.Source)
	}
	if env.Data["name"] != "Maria" {
		t.Errorf("data = %v", env.Data)
	}
	if env.Metadata["userId"] != "u1" {
		t.Errorf("metadata = %v", env.Metadata)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["eventId"] != "evt-1" || headers["eventType"] != "clients" ||
		headers["tenantId"] != "t1" || headers["source"] != "web" {
		t.Errorf("headers = %v", headers)
	}
}

func TestPublishEventFreshIDPerCall(t *testing.T) {
	p := newTestPublisher(&fakeAdmin{}, &fakeWriter{})

	first, _ := p.PublishEvent(context.Background(), "t1", EntityClients, map[string]any{"id": "c1"}, nil)
	second, _ := p.PublishEvent(context.Background(), "t1", EntityClients, map[string]any{"id": "c1"}, nil)
	if first == second {
		t.Errorf("eventId reused across publishes: %q", first)
	}
}

func TestRecordBestEffortOnPublishFailure(t *testing.T) {
	store := rtdb.NewMemoryStore()
	p := newTestPublisher(&fakeAdmin{}, &fakeWriter{err: errors.New("broker unavailable")})
	svc := NewService(NewMirror(store, testLogger()), p, testLogger(), false)

	fx, err := svc.Record(context.Background(), "t1", EntityClients, "c1", map[string]any{"id": "c1"}, nil)
	if err != nil {
		t.Fatalf("best-effort publish failure must not surface: %v", err)
	}
	if !fx.Mirror.OK {
		t.Errorf("mirror should have succeeded: %+v", fx.Mirror)
	}
	if fx.Event.OK || fx.Event.Error == "" {
		t.Errorf("event result should carry the failure: %+v", fx.Event)
	}
}

func TestRecordStrictEventsPropagates(t *testing.T) {
	store := rtdb.NewMemoryStore()
	p := newTestPublisher(&fakeAdmin{}, &fakeWriter{err: errors.New("broker unavailable")})
	svc := NewService(NewMirror(store, testLogger()), p, testLogger(), true)

	_, err := svc.Record(context.Background(), "t1", EntityFinancial, "tx1", map[string]any{"id": "tx1"}, nil)
	if err == nil {
		t.Fatal("strict mode must propagate publish failures")
	}
}

func TestEnsureTenantTopics(t *testing.T) {
	admin := &fakeAdmin{}
	p := newTestPublisher(admin, &fakeWriter{})

	if err := p.EnsureTenantTopics(context.Background(), "t9"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(admin.created) != len(TenantEventTypes) {
		t.Fatalf("created %d topics, want %d", len(admin.created), len(TenantEventTypes))
	}
	want := "despasys-tenant-t9-" + TenantEventTypes[0]
	if admin.created[0] != want {
		t.Errorf("first topic = %q, want %q", admin.created[0], want)
	}
}
