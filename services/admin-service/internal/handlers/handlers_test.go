package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/despasys/despasys/libs/auth"
	"github.com/despasys/despasys/libs/rtdb"
	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

const testSecret = "test-secret"

func testHandler(store rtdb.Store) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writes := dualwrite.NewService(dualwrite.NewMirror(store, logger), nil, logger, false)
	return New(nil, writes, nil, testSecret, logger)
}

// flowHandler builds a handler with the full side-effect chain wired to
// in-memory fakes, for end-to-end write-path tests.
func flowHandler(repo Repository, store rtdb.Store, writer *fakeWriter, strict bool, logger *slog.Logger) *Handler {
	publisher := dualwrite.NewPublisher(&fakeAdmin{}, writer, "despasys", logger)
	writes := dualwrite.NewService(dualwrite.NewMirror(store, logger), publisher, logger, strict)
	return New(repo, writes, publisher, testSecret, logger)
}

type fakeAdmin struct {
	existing map[string]bool
}

func (a *fakeAdmin) TopicExists(_ context.Context, topic string) (bool, error) {
	return a.existing[topic], nil
}

func (a *fakeAdmin) CreateTopic(_ context.Context, topic string) error {
	if a.existing == nil {
		a.existing = map[string]bool{}
	}
	a.existing[topic] = true
	return nil
}

type fakeWriter struct {
	msgs      []kafka.Message
	failTopic string
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if w.failTopic != "" && strings.Contains(m.Topic, w.failTopic) {
			return errors.New("broker unavailable")
		}
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

// fakeRepo implements the methods a test drives; anything it does not
// override panics through the embedded interface.
type fakeRepo struct {
	Repository
	customers  []storage.Customer
	process    storage.Process
	previous   string
	licensings []storage.Licensing
}

func (f *fakeRepo) FindCustomerByDocument(_ context.Context, tenantID, document string) (storage.Customer, error) {
	for _, c := range f.customers {
		if c.TenantID == tenantID && c.Document == document {
			return c, nil
		}
	}
	return storage.Customer{}, pgx.ErrNoRows
}

func (f *fakeRepo) CreateCustomer(_ context.Context, c storage.Customer) (storage.Customer, error) {
	c.ID = fmt.Sprintf("c-%d", len(f.customers)+1)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.customers = append(f.customers, c)
	return c, nil
}

func (f *fakeRepo) UpdateProcessStatus(_ context.Context, _, _, newStatus, _ string) (storage.Process, string, error) {
	p := f.process
	p.Status = newStatus
	return p, f.previous, nil
}

func (f *fakeRepo) CreateLicensing(_ context.Context, l storage.Licensing) (storage.Licensing, error) {
	l.ID = fmt.Sprintf("lic-%d", len(f.licensings)+1)
	if l.Status == "" {
		l.Status = "PENDING"
	}
	f.licensings = append(f.licensings, l)
	return l, nil
}

func testToken(t *testing.T, tenantID string) string {
	t.Helper()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      "u1",
		TenantID: tenantID,
		Role:     "admin",
		Iat:      now.Unix(),
		Exp:      now.Add(time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	h := testHandler(rtdb.NewMemoryStore())
	protected := h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	protected(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	h := testHandler(rtdb.NewMemoryStore())
	protected := h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	protected(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireAuthPassesClaims(t *testing.T) {
	h := testHandler(rtdb.NewMemoryStore())
	var gotTenant string
	protected := h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotTenant = claims.TenantID
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "t1"))
	rec := httptest.NewRecorder()
	protected(rec, req)
	if gotTenant != "t1" {
		t.Fatalf("tenant = %q", gotTenant)
	}
}

func TestNotificationsWritesFeed(t *testing.T) {
	store := rtdb.NewMemoryStore()
	h := testHandler(store)

	body := strings.NewReader(`{"title":"Backup","message":"Backup concluido","level":"info"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", body)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "t1"))
	rec := httptest.NewRecorder()
	h.RequireAuth(h.Notifications)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if store.Len() != 1 {
		t.Fatalf("mirrored docs = %d", store.Len())
	}
}

func TestNotificationsRequiresTitle(t *testing.T) {
	h := testHandler(rtdb.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/notifications", strings.NewReader(`{"message":"x"}`))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "t1"))
	rec := httptest.NewRecorder()
	h.RequireAuth(h.Notifications)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := testHandler(rtdb.NewMemoryStore())

	req := httptest.NewRequest(http.MethodDelete, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "t1"))
	rec := httptest.NewRecorder()
	h.RequireAuth(h.Notifications)(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
