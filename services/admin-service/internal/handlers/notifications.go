package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notifications handles POST: pushes an operator notification to the
// tenant's feed. Notifications are mirror-and-event only, there is no
// relational row behind them.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, userID := tenantFrom(r)

	var req struct {
		Title   string `json:"title"`
		Message string `json:"message"`
		Level   string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		http.Error(w, "title and message required", http.StatusBadRequest)
		return
	}
	if req.Level == "" {
		req.Level = "info"
	}

	id := uuid.NewString()
	fx, err := h.writes.Notify(r.Context(), tenantID, id, map[string]any{
		"id":        id,
		"title":     req.Title,
		"message":   req.Message,
		"level":     req.Level,
		"createdBy": userID,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to deliver notification", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "sync": fx})
}
