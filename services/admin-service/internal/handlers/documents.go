package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

// Licensings handles POST and GET for yearly licensing renewals.
func (h *Handler) Licensings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createLicensing(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		items, err := h.repo.ListLicensings(r.Context(), tenantID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list licensings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func (h *Handler) createLicensing(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		CustomerID    string `json:"customer_id"`
		VehiclePlate  string `json:"vehicle_plate"`
		ReferenceYear int    `json:"reference_year"`
		DueDate       string `json:"due_date"`
		Amount        string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.VehiclePlate = normalizePlate(req.VehiclePlate)
	if req.VehiclePlate == "" || req.ReferenceYear == 0 {
		http.Error(w, "vehicle_plate and reference_year required", http.StatusBadRequest)
		return
	}
	if req.Amount == "" {
		req.Amount = "0"
	}
	var due time.Time
	if req.DueDate != "" {
		var err error
		due, err = time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			http.Error(w, "invalid due_date", http.StatusBadRequest)
			return
		}
	}

	licensing, err := h.repo.CreateLicensing(r.Context(), storage.Licensing{
		TenantID:      tenantID,
		CustomerID:    req.CustomerID,
		VehiclePlate:  req.VehiclePlate,
		ReferenceYear: req.ReferenceYear,
		DueDate:       due,
		Amount:        req.Amount,
	})
	if err != nil {
		http.Error(w, "failed to create licensing", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityLicensings, licensing.ID,
		dualwrite.LicensingProjection(licensing), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "licensing saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": licensing.ID, "sync": fx})
}

// Transfers handles POST and GET for ownership transfers.
func (h *Handler) Transfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createTransfer(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		items, err := h.repo.ListTransfers(r.Context(), tenantID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list transfers", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		VehiclePlate string `json:"vehicle_plate"`
		SellerID     string `json:"seller_id"`
		BuyerID      string `json:"buyer_id"`
		Amount       string `json:"amount"`
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
	if req.Amount == "" {
		req.Amount = "0"
	}

	transfer, err := h.repo.CreateTransfer(r.Context(), storage.Transfer{
		TenantID:     tenantID,
		VehiclePlate: req.VehiclePlate,
		SellerID:     req.SellerID,
		BuyerID:      req.BuyerID,
		Amount:       req.Amount,
	})
	if err != nil {
		http.Error(w, "failed to create transfer", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityTransfers, transfer.ID,
		dualwrite.TransferProjection(transfer), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "transfer saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": transfer.ID, "sync": fx})
}

// Registrations handles POST and GET for first-registration requests.
func (h *Handler) Registrations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createRegistration(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		items, err := h.repo.ListRegistrations(r.Context(), tenantID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list registrations", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createRegistration(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		CustomerID   string `json:"customer_id"`
		VehiclePlate string `json:"vehicle_plate"`
		Kind         string `json:"kind"`
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
	if req.Kind == "" {
		req.Kind = "PRIMEIRO_EMPLACAMENTO"
	}

	registration, err := h.repo.CreateRegistration(r.Context(), storage.Registration{
		TenantID:     tenantID,
		CustomerID:   req.CustomerID,
		VehiclePlate: req.VehiclePlate,
		Kind:         strings.ToUpper(strings.TrimSpace(req.Kind)),
	})
	if err != nil {
		http.Error(w, "failed to create registration", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityRegistrations, registration.ID,
		dualwrite.RegistrationProjection(registration), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "registration saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": registration.ID, "sync": fx})
}

// Unlocks handles POST and GET for block-removal requests.
func (h *Handler) Unlocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUnlock(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		items, err := h.repo.ListUnlocks(r.Context(), tenantID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list unlocks", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createUnlock(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		CustomerID   string `json:"customer_id"`
		VehiclePlate string `json:"vehicle_plate"`
		BlockKind    string `json:"block_kind"`
		Authority    string `json:"authority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.VehiclePlate = normalizePlate(req.VehiclePlate)
	if req.VehiclePlate == "" || req.BlockKind == "" {
		http.Error(w, "vehicle_plate and block_kind required", http.StatusBadRequest)
		return
	}

	unlock, err := h.repo.CreateUnlock(r.Context(), storage.Unlock{
		TenantID:     tenantID,
		CustomerID:   req.CustomerID,
		VehiclePlate: req.VehiclePlate,
		BlockKind:    strings.ToUpper(strings.TrimSpace(req.BlockKind)),
		Authority:    req.Authority,
	})
	if err != nil {
		http.Error(w, "failed to create unlock", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityUnlocks, unlock.ID,
		dualwrite.UnlockProjection(unlock), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "unlock saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": unlock.ID, "sync": fx})
}

// documentEntities maps the ?type= query value onto the SQL table and
// the mirror/event entity type.
var documentEntities = map[string]string{
	"licensings":    dualwrite.EntityLicensings,
	"transfers":     dualwrite.EntityTransfers,
	"registrations": dualwrite.EntityRegistrations,
	"unlocks":       dualwrite.EntityUnlocks,
}

// DocumentStatusFor returns the PATCH ?id= status-transition handler for
// one of the four document workflows.
func (h *Handler) DocumentStatusFor(docType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.documentStatus(w, r, docType)
	}
}

func (h *Handler) documentStatus(w http.ResponseWriter, r *http.Request, docType string) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, userID := tenantFrom(r)

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	entityType, ok := documentEntities[docType]
	if !ok || id == "" {
		http.Error(w, "unknown document type or missing id", http.StatusBadRequest)
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
	if req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.repo.UpdateDocumentStatus(ctx, docType, tenantID, id, req.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update document", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(ctx, tenantID, entityType, id,
		map[string]any{"id": id, "status": req.Status},
		map[string]any{"userId": userID, "action": "status_changed"})
	if err != nil {
		http.Error(w, "document saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status, "sync": fx})
}
