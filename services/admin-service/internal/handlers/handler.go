// Package handlers exposes the tenant admin HTTP API. Every write goes
// through the same sequence: validate, persist via storage, then hand the
// row to dualwrite for the realtime mirror and the domain event.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

// Repository is the persistence surface the handlers depend on,
// implemented by storage.Repository.
type Repository interface {
	CreateTenant(ctx context.Context, name, domain, plan string) (storage.Tenant, error)
	GetTenantByDomain(ctx context.Context, domain string) (storage.Tenant, error)
	CreateUser(ctx context.Context, u storage.User) (storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (storage.User, error)
	CreateCustomer(ctx context.Context, c storage.Customer) (storage.Customer, error)
	GetCustomer(ctx context.Context, tenantID, id string) (storage.Customer, error)
	FindCustomerByDocument(ctx context.Context, tenantID, document string) (storage.Customer, error)
	ListCustomers(ctx context.Context, tenantID string, limit int) ([]storage.Customer, error)
	UpdateCustomer(ctx context.Context, c storage.Customer) (storage.Customer, error)
	CreateVehicle(ctx context.Context, v storage.Vehicle) (storage.Vehicle, error)
	ListVehicles(ctx context.Context, tenantID string, limit int) ([]storage.Vehicle, error)
	GetVehicleByPlate(ctx context.Context, tenantID, plate string) (storage.Vehicle, error)
	CreateProcess(ctx context.Context, p storage.Process) (storage.Process, error)
	GetProcess(ctx context.Context, tenantID, id string) (storage.Process, error)
	ListProcesses(ctx context.Context, tenantID, status string, limit int) ([]storage.Process, error)
	UpdateProcessStatus(ctx context.Context, tenantID, id, newStatus, updatedBy string) (storage.Process, string, error)
	CreateLicensing(ctx context.Context, l storage.Licensing) (storage.Licensing, error)
	ListLicensings(ctx context.Context, tenantID string, limit int) ([]storage.Licensing, error)
	CreateTransfer(ctx context.Context, t storage.Transfer) (storage.Transfer, error)
	ListTransfers(ctx context.Context, tenantID string, limit int) ([]storage.Transfer, error)
	CreateRegistration(ctx context.Context, reg storage.Registration) (storage.Registration, error)
	ListRegistrations(ctx context.Context, tenantID string, limit int) ([]storage.Registration, error)
	CreateUnlock(ctx context.Context, u storage.Unlock) (storage.Unlock, error)
	ListUnlocks(ctx context.Context, tenantID string, limit int) ([]storage.Unlock, error)
	UpdateDocumentStatus(ctx context.Context, table, tenantID, id, status string) error
	CreateReport(ctx context.Context, rep storage.Report) (storage.Report, error)
	ListReports(ctx context.Context, tenantID string, limit int) ([]storage.Report, error)
	CreateEvaluation(ctx context.Context, e storage.Evaluation) (storage.Evaluation, error)
	ListEvaluations(ctx context.Context, tenantID string, limit int) ([]storage.Evaluation, error)
	CreateTransaction(ctx context.Context, t storage.Transaction) (storage.Transaction, error)
	ListTransactions(ctx context.Context, tenantID, kind, status string, limit int) ([]storage.Transaction, error)
	CashFlowSummary(ctx context.Context, tenantID string, from, to time.Time) (storage.CashFlow, error)
}

var _ Repository = (*storage.Repository)(nil)

type Handler struct {
	repo      Repository
	writes    *dualwrite.Service
	publisher *dualwrite.Publisher
	jwtSecret string
	logger    *slog.Logger
}

func New(repo Repository, writes *dualwrite.Service, publisher *dualwrite.Publisher, jwtSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		writes:    writes,
		publisher: publisher,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
