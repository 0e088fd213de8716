// Package handlers exposes the HTTP push path of the relay: broker
// bridges POST wrapped envelopes here when a consumer group is not an
// option (e.g. serverless deployments).
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/despasys/despasys/services/relay-service/internal/relay"
)

// pushRequest is the push delivery wrapper: the envelope rides
// base64-encoded in message.data, with identity fields duplicated in the
// attributes.
type pushRequest struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type PushHandler struct {
	relay  *relay.Relay
	token  string
	logger *slog.Logger
}

func NewPushHandler(r *relay.Relay, token string, logger *slog.Logger) *PushHandler {
	return &PushHandler{relay: r, token: token, logger: logger}
}

// ServeHTTP accepts one push delivery per request. Envelopes that cannot
// ever become valid (no data, no tenant) are acknowledged with 200 and
// dropped, otherwise the sender would redeliver the same broken payload
// forever. Store failures return 500 so the delivery is retried.
func (h *PushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Message.Data == "" {
		h.logger.Warn("push delivery without data ignored", "messageId", req.Message.MessageID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "no data"})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		http.Error(w, "invalid base64 data", http.StatusBadRequest)
		return
	}

	var event relay.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		http.Error(w, "invalid envelope", http.StatusBadRequest)
		return
	}

	// Attributes back-fill identity fields the payload omits; eventId
	// falls back to the delivery's messageId, then a fresh id.
	attrs := req.Message.Attributes
	if event.TenantID == "" {
		event.TenantID = attrs["tenantId"]
	}
	if event.EventType == "" {
		event.EventType = attrs["eventType"]
	}
	if event.Source == "" {
		event.Source = attrs["source"]
	}
	if event.EventID == "" {
		event.EventID = req.Message.MessageID
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	written, err := h.relay.Store(r.Context(), event)
	if err != nil {
		if event.Validate() != nil {
			h.logger.Warn("event ignored", "reason", err.Error(), "messageId", req.Message.MessageID)
			writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": err.Error()})
			return
		}
		h.logger.Error("relay store failed", "eventId", event.EventID, "error", err)
		http.Error(w, "failed to store event", http.StatusInternalServerError)
		return
	}

	paths := make([]string, len(written))
	for i, wr := range written {
		paths[i] = wr.Path
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "stored", "paths": paths})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
