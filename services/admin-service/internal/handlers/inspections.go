package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

// Reports handles POST and GET for inspection reports (laudos).
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createReport(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		items, err := h.repo.ListReports(r.Context(), tenantID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list reports", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		VehiclePlate string `json:"vehicle_plate"`
		Kind         string `json:"kind"`
		Result       string `json:"result"`
		Notes        string `json:"notes"`
		InspectedAt  string `json:"inspected_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.VehiclePlate = normalizePlate(req.VehiclePlate)
	req.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	if req.VehiclePlate == "" || req.Kind == "" {
		http.Error(w, "vehicle_plate and kind required", http.StatusBadRequest)
		return
	}
	var inspectedAt time.Time
	if req.InspectedAt != "" {
		var err error
		inspectedAt, err = time.Parse(time.RFC3339, req.InspectedAt)
		if err != nil {
			http.Error(w, "invalid inspected_at", http.StatusBadRequest)
			return
		}
	}

	report, err := h.repo.CreateReport(r.Context(), storage.Report{
		TenantID:     tenantID,
		VehiclePlate: req.VehiclePlate,
		Kind:         req.Kind,
		Result:       strings.ToUpper(strings.TrimSpace(req.Result)),
		Notes:        req.Notes,
		InspectedAt:  inspectedAt,
	})
	if err != nil {
		http.Error(w, "failed to create report", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityReports, report.ID,
		dualwrite.ReportProjection(report), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "report saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": report.ID, "sync": fx})
}

// Evaluations handles POST and GET for vehicle appraisals.
func (h *Handler) Evaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createEvaluation(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		items, err := h.repo.ListEvaluations(r.Context(), tenantID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list evaluations", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createEvaluation(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		VehiclePlate   string `json:"vehicle_plate"`
		FipeCode       string `json:"fipe_code"`
		MarketValue    string `json:"market_value"`
		EvaluatedValue string `json:"evaluated_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.VehiclePlate = normalizePlate(req.VehiclePlate)
	if req.VehiclePlate == "" {
		http.Error(w, "vehicle_plate is required", http.StatusBadRequest)
		return
	}
	if req.MarketValue == "" {
		req.MarketValue = "0"
	}
	if req.EvaluatedValue == "" {
		req.EvaluatedValue = "0"
	}

	evaluation, err := h.repo.CreateEvaluation(r.Context(), storage.Evaluation{
		TenantID:       tenantID,
		VehiclePlate:   req.VehiclePlate,
		FipeCode:       req.FipeCode,
		MarketValue:    req.MarketValue,
		EvaluatedValue: req.EvaluatedValue,
	})
	if err != nil {
		http.Error(w, "failed to create evaluation", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityEvaluations, evaluation.ID,
		dualwrite.EvaluationProjection(evaluation), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "evaluation saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": evaluation.ID, "sync": fx})
}
