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

type customerRequest struct {
	Name       string `json:"name"`
	Document   string `json:"document"`
	PersonType string `json:"person_type"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	City       string `json:"city"`
	State      string `json:"state"`
	Address    string `json:"address"`
	Status     string `json:"status"`
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Customers handles POST (create with duplicate-document check), GET
// (?id= for one, otherwise list) and PUT ?id= (update).
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createCustomer(w, r)
	case http.MethodGet:
		if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
			h.getCustomer(w, r, id)
			return
		}
		h.listCustomers(w, r)
	case http.MethodPut:
		h.updateCustomer(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Document = digitsOnly(req.Document)
	if req.Name == "" || req.Document == "" {
		http.Error(w, "name and document required", http.StatusBadRequest)
		return
	}
	if req.PersonType == "" {
		if len(req.Document) > 11 {
			req.PersonType = "PESSOA_JURIDICA"
		} else {
			req.PersonType = "PESSOA_FISICA"
		}
	}

	ctx := r.Context()
	if _, err := h.repo.FindCustomerByDocument(ctx, tenantID, req.Document); err == nil {
		http.Error(w, "document already registered", http.StatusBadRequest)
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		http.Error(w, "failed to check document", http.StatusInternalServerError)
		return
	}

	customer, err := h.repo.CreateCustomer(ctx, storage.Customer{
		TenantID:   tenantID,
		Name:       req.Name,
		Document:   req.Document,
		PersonType: req.PersonType,
		Phone:      req.Phone,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		City:       req.City,
		State:      strings.ToUpper(strings.TrimSpace(req.State)),
		Address:    req.Address,
		Status:     req.Status,
	})
	if err != nil {
		http.Error(w, "failed to create customer", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(ctx, tenantID, dualwrite.EntityClients, customer.ID,
		dualwrite.CustomerProjection(customer), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "customer saved but event delivery failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   customer.ID,
		"sync": fx,
	})
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, _ := tenantFrom(r)
	customer, err := h.repo.GetCustomer(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantFrom(r)
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	customers, err := h.repo.ListCustomers(r.Context(), tenantID, limit)
	if err != nil {
		http.Error(w, "failed to list customers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	current, err := h.repo.GetCustomer(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load customer", http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		current.Name = strings.TrimSpace(req.Name)
	}
	if req.Phone != "" {
		current.Phone = req.Phone
	}
	if req.Email != "" {
		current.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.City != "" {
		current.City = req.City
	}
	if req.State != "" {
		current.State = strings.ToUpper(strings.TrimSpace(req.State))
	}
	if req.Address != "" {
		current.Address = req.Address
	}
	if req.Status != "" {
		current.Status = req.Status
	}

	customer, err := h.repo.UpdateCustomer(ctx, current)
	if err != nil {
		http.Error(w, "failed to update customer", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(ctx, tenantID, dualwrite.EntityClients, customer.ID,
		dualwrite.CustomerProjection(customer), map[string]any{"userId": userID, "action": "updated"})
	if err != nil {
		http.Error(w, "customer saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   customer.ID,
		"sync": fx,
	})
}
