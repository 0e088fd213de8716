package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

var processStatuses = map[string]bool{
	"PENDING":     true,
	"IN_PROGRESS": true,
	"WAITING_DOC": true,
	"COMPLETED":   true,
	"CANCELLED":   true,
}

// Processes handles POST (open a process) and GET (?id= for one,
// otherwise list, optionally filtered by ?status=).
func (h *Handler) Processes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createProcess(w, r)
	case http.MethodGet:
		if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
			h.getProcess(w, r, id)
			return
		}
		h.listProcesses(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createProcess(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		Type        string `json:"type"`
		Priority    string `json:"priority"`
		CustomerID  string `json:"customer_id"`
		VehicleID   string `json:"vehicle_id"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if req.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	process, err := h.repo.CreateProcess(r.Context(), storage.Process{
		TenantID:    tenantID,
		Type:        req.Type,
		Priority:    strings.ToUpper(strings.TrimSpace(req.Priority)),
		CustomerID:  req.CustomerID,
		VehicleID:   req.VehicleID,
		Description: req.Description,
		CreatedBy:   userID,
	})
	if err != nil {
		http.Error(w, "failed to create process", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityProcesses, process.ID,
		dualwrite.ProcessProjection(process), map[string]any{"userId": userID, "action": "created"})
	if err != nil {
		http.Error(w, "process saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     process.ID,
		"number": process.Number,
		"sync":   fx,
	})
}

func (h *Handler) getProcess(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, _ := tenantFrom(r)
	process, err := h.repo.GetProcess(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "process not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load process", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, process)
}

func (h *Handler) listProcesses(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantFrom(r)
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	processes, err := h.repo.ListProcesses(r.Context(), tenantID, status, limit)
	if err != nil {
		http.Error(w, "failed to list processes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, processes)
}

// ProcessStatus transitions a process (PATCH ?id=) and fans a
// notification out to the tenant alongside the process event.
func (h *Handler) ProcessStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, userID := tenantFrom(r)

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if !processStatuses[req.Status] {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	process, previous, err := h.repo.UpdateProcessStatus(ctx, tenantID, id, req.Status, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "process not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update process", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(ctx, tenantID, dualwrite.EntityProcesses, process.ID,
		dualwrite.ProcessProjection(process),
		map[string]any{"userId": userID, "action": "status_changed", "previousStatus": previous})
	if err != nil {
		http.Error(w, "process saved but event delivery failed", http.StatusInternalServerError)
		return
	}

	// Status changes also land in the notifications feed. A failed feed
	// write never fails the transition, but it must leave a trace.
	if _, err := h.writes.Notify(ctx, tenantID, "process-"+process.ID, map[string]any{
		"id":      "process-" + process.ID,
		"title":   "Processo " + process.Number,
		"message": "Status: " + previous + " -> " + process.Status,
		"level":   "info",
	}); err != nil {
		h.logger.Warn("process notification failed", "processId", process.ID, "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":              process.ID,
		"status":          process.Status,
		"previous_status": previous,
		"sync":            fx,
	})
}
