package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

type createTenantRequest struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	Plan          string `json:"plan"`
	AdminEmail    string `json:"admin_email"`
	AdminName     string `json:"admin_name"`
	AdminPassword string `json:"admin_password"`
}

// Tenants handles POST (provision a tenant plus its first admin user and
// its standard topic set) and GET ?domain= (resolve a tenant).
func (h *Handler) Tenants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createTenant(w, r)
	case http.MethodGet:
		h.getTenant(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	req.AdminEmail = strings.ToLower(strings.TrimSpace(req.AdminEmail))
	if req.Name == "" || req.Domain == "" || req.AdminEmail == "" || req.AdminPassword == "" {
		http.Error(w, "name, domain, admin_email and admin_password required", http.StatusBadRequest)
		return
	}
	if req.Plan == "" {
		req.Plan = "basic"
	}

	ctx := r.Context()
	tenant, err := h.repo.CreateTenant(ctx, req.Name, req.Domain, req.Plan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "domain already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create tenant", http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}
	admin, err := h.repo.CreateUser(ctx, storage.User{
		TenantID:     tenant.ID,
		Email:        req.AdminEmail,
		Name:         req.AdminName,
		PasswordHash: string(hash),
		Role:         "admin",
	})
	if err != nil {
		http.Error(w, "failed to create admin user", http.StatusInternalServerError)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.EnsureTenantTopics(ctx, tenant.ID); err != nil {
			h.logger.Error("tenant topic provisioning failed", "tenantId", tenant.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant":        tenant,
		"admin_user_id": admin.ID,
	})
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("domain")))
	if domain == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}
	tenant, err := h.repo.GetTenantByDomain(r.Context(), domain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load tenant", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
