package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/despasys/despasys/libs/rtdb"
	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
)

func TestCreateCustomerFlow(t *testing.T) {
	store := rtdb.NewMemoryStore()
	writer := &fakeWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := flowHandler(&fakeRepo{}, store, writer, false, logger)

	body := strings.NewReader(`{"name":"Ana","document":"123.456.789-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", body)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "t1"))
	rec := httptest.NewRecorder()
	h.RequireAuth(h.Customers)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id, _ := resp["id"].(string)
	if id == "" {
		t.Fatalf("response has no id: %v", resp)
	}

	// Mirror: projection plus lastSynced under the tenant's clients path.
	doc, err := store.Get(req.Context(), "tenants/t1/clients/"+id)
	if err != nil {
		t.Fatalf("mirrored doc missing: %v", err)
	}
	if doc["name"] != "Ana" {
		t.Errorf("mirrored name = %v", doc["name"])
	}
	if _, ok := doc["lastSynced"].(float64); !ok {
		t.Errorf("lastSynced = %v", doc["lastSynced"])
	}

	// Event: exactly one message on the tenant's clients topic.
	if len(writer.msgs) != 1 {
		t.Fatalf("messages written = %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if msg.Topic != "despasys-tenant-t1-clients" {
		t.Errorf("topic = %q", msg.Topic)
	}
	var env dualwrite.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.TenantID != "t1" || env.Data["name"] != "Ana" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestCreateCustomerRejectsDuplicateDocument(t *testing.T) {
	store := rtdb.NewMemoryStore()
	writer := &fakeWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := flowHandler(&fakeRepo{}, store, writer, false, logger)

	for i, want := range []int{http.StatusCreated, http.StatusBadRequest} {
		body := strings.NewReader(`{"name":"Ana","document":"12345678901"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", body)
		req.Header.Set("Authorization", "Bearer "+testToken(t, "t1"))
		rec := httptest.NewRecorder()
		h.RequireAuth(h.Customers)(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
	if len(writer.msgs) != 1 {
		t.Errorf("duplicate create must not publish, messages = %d", len(writer.msgs))
	}
}
