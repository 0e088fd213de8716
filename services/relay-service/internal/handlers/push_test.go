package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/despasys/despasys/libs/rtdb"
	"github.com/despasys/despasys/services/relay-service/internal/relay"
)

func newPush(store rtdb.Store, token string) *PushHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPushHandler(relay.New(store, logger), token, logger)
}

func pushBody(t *testing.T, envelope map[string]any, attributes map[string]string, messageID string) string {
	t.Helper()
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"data":       base64.StdEncoding.EncodeToString(payload),
			"attributes": attributes,
			"messageId":  messageID,
		},
		"subscription": "projects/demo/subscriptions/relay",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return string(body)
}

func validEnvelope() map[string]any {
	return map[string]any{
		"eventId":   "evt-1",
		"eventType": "processes",
		"timestamp": "2026-03-01T12:00:00Z",
		"version":   "1.0",
		"source":    "web",
		"tenantId":  "t1",
		"data":      map[string]any{"id": "p1"},
	}
}

func TestPushStoresEvent(t *testing.T) {
	store := rtdb.NewMemoryStore()
	h := newPush(store, "secret")

	body := pushBody(t, validEnvelope(), nil, "m-1")
	req := httptest.NewRequest(http.MethodPost, "/relay?token=secret", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string   `json:"status"`
		Paths  []string `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "stored" || len(resp.Paths) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Paths[0] != "tenants/t1/events/processes/evt-1" {
		t.Errorf("path = %q", resp.Paths[0])
	}
}

func TestPushAttributeFallback(t *testing.T) {
	store := rtdb.NewMemoryStore()
	h := newPush(store, "")

	envelope := map[string]any{"data": map[string]any{"id": "c1"}}
	attrs := map[string]string{"tenantId": "t2", "eventType": "clients", "source": "web"}
	body := pushBody(t, envelope, attrs, "m-77")
	req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	// eventId comes from the delivery's messageId.
	if _, err := store.Get(req.Context(), "tenants/t2/events/clients/m-77"); err != nil {
		t.Errorf("event doc missing: %v", err)
	}
}

func TestPushRejectsBadToken(t *testing.T) {
	h := newPush(rtdb.NewMemoryStore(), "secret")

	body := pushBody(t, validEnvelope(), nil, "m-1")
	req := httptest.NewRequest(http.MethodPost, "/relay?token=wrong", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPushRejectsInvalidJSON(t *testing.T) {
	h := newPush(rtdb.NewMemoryStore(), "")

	req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPushRejectsBadBase64(t *testing.T) {
	h := newPush(rtdb.NewMemoryStore(), "")

	body := `{"message": {"data": "%%%not-base64%%%", "messageId": "m-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPushAcksEmptyDelivery(t *testing.T) {
	store := rtdb.NewMemoryStore()
	h := newPush(store, "")

	req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader(`{"message": {"messageId": "m-1"}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if store.Len() != 0 {
		t.Errorf("store written for empty delivery")
	}
}

func TestPushAcksEnvelopeWithoutTenant(t *testing.T) {
	store := rtdb.NewMemoryStore()
	h := newPush(store, "")

	// No tenantId anywhere: dropped but acknowledged so the sender does
	// not redeliver it.
	envelope := map[string]any{"eventType": "processes", "data": map[string]any{}}
	body := pushBody(t, envelope, nil, "m-1")
	req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if store.Len() != 0 {
		t.Errorf("store written for invalid envelope")
	}
}
