package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

// Transactions handles POST (post an entry) and GET (list, filtered by
// ?kind= and ?status=).
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createTransaction(w, r)
	case http.MethodGet:
		tenantID, _ := tenantFrom(r)
		kind := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind")))
		status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
		items, err := h.repo.ListTransactions(r.Context(), tenantID, kind, status, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to list transactions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	tenantID, userID := tenantFrom(r)

	var req struct {
		ProcessID     string `json:"process_id"`
		CustomerID    string `json:"customer_id"`
		Kind          string `json:"kind"`
		Category      string `json:"category"`
		Description   string `json:"description"`
		Amount        string `json:"amount"`
		DueDate       string `json:"due_date"`
		PaidDate      string `json:"paid_date"`
		Status        string `json:"status"`
		PaymentMethod string `json:"payment_method"`
		Notes         string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	if req.Kind != "RECEITA" && req.Kind != "DESPESA" {
		http.Error(w, "kind must be RECEITA or DESPESA", http.StatusBadRequest)
		return
	}
	if req.Amount == "" {
		http.Error(w, "amount is required", http.StatusBadRequest)
		return
	}

	parseDate := func(s string) (time.Time, bool) {
		if s == "" {
			return time.Time{}, true
		}
		t, err := time.Parse("2006-01-02", s)
		return t, err == nil
	}
	due, ok := parseDate(req.DueDate)
	if !ok {
		http.Error(w, "invalid due_date", http.StatusBadRequest)
		return
	}
	paid, ok := parseDate(req.PaidDate)
	if !ok {
		http.Error(w, "invalid paid_date", http.StatusBadRequest)
		return
	}

	tx, err := h.repo.CreateTransaction(r.Context(), storage.Transaction{
		TenantID:      tenantID,
		ProcessID:     req.ProcessID,
		CustomerID:    req.CustomerID,
		Kind:          req.Kind,
		Category:      req.Category,
		Description:   req.Description,
		Amount:        req.Amount,
		DueDate:       due,
		PaidDate:      paid,
		Status:        strings.ToUpper(strings.TrimSpace(req.Status)),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		http.Error(w, "failed to create transaction", http.StatusInternalServerError)
		return
	}

	fx, err := h.writes.Record(r.Context(), tenantID, dualwrite.EntityFinancial, tx.ID,
		dualwrite.TransactionProjection(tx), map[string]any{"userId": userID})
	if err != nil {
		http.Error(w, "transaction saved but event delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": tx.ID, "number": tx.Number, "sync": fx})
}

// CashFlow summarizes paid and pending amounts over ?from= / ?to=
// (YYYY-MM-DD, defaulting to the current month).
func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, _ := tenantFrom(r)

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		to = t
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	cf, err := h.repo.CashFlowSummary(r.Context(), tenantID, from, to)
	if err != nil {
		http.Error(w, "failed to summarize cash flow", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":            from.Format("2006-01-02"),
		"to":              to.Format("2006-01-02"),
		"total_income":    cf.TotalIncome,
		"total_expense":   cf.TotalExpense,
		"net":             cf.Net,
		"pending_income":  cf.PendingIncome,
		"pending_expense": cf.PendingExpense,
	})
}
