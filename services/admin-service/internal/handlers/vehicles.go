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

// Vehicles handles POST (register) and GET (?plate= for one, otherwise
// list).
func (h *Handler) Vehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createVehicle(w, r)
	case http.MethodGet:
		if plate := normalizePlate(r.URL.Query().Get("plate")); plate != "" {
			h.getVehicle(w, r, plate)
			return
		}
		h.listVehicles(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(plate), "-", ""))
}

func (h *Handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		Plate      string `json:"plate"`
		Renavam    string `json:"renavam"`
		Chassis    string `json:"chassis"`
		Brand      string `json:"brand"`
		Model      string `json:"model"`
		ModelYear  int    `json:"model_year"`
		Color      string `json:"color"`
		CustomerID string `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Plate = normalizePlate(req.Plate)
	if req.Plate == "" {
		http.Error(w, "plate is required", http.StatusBadRequest)
		return
	}

	vehicle, err := h.repo.CreateVehicle(r.Context(), storage.Vehicle{
		TenantID:   tenantID,
		CustomerID: req.CustomerID,
		Plate:      req.Plate,
		Renavam:    req.Renavam,
		Chassis:    req.Chassis,
		Brand:      req.Brand,
		Model:      req.Model,
		ModelYear:  req.ModelYear,
		Color:      req.Color,
	})
	if err != nil {
		http.Error(w, "failed to create vehicle", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityVehicles, vehicle.ID,
		dualwrite.VehicleProjection(vehicle), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "vehicle saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   vehicle.ID,
		"sync": fx,
	})
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request, plate string) {
	tenantID, _ := tenantFrom(r)
	vehicle, err := h.repo.GetVehicleByPlate(r.Context(), tenantID, plate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "vehicle not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load vehicle", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantFrom(r)
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	vehicles, err := h.repo.ListVehicles(r.Context(), tenantID, limit)
	if err != nil {
		http.Error(w, "failed to list vehicles", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}
