package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Licensing is a yearly vehicle licensing renewal handled for a customer.
type Licensing struct {
	ID            string
	TenantID      string
	CustomerID    string
	VehiclePlate  string
	ReferenceYear int
	DueDate       time.Time
	Amount        string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *Repository) CreateLicensing(ctx context.Context, l Licensing) (Licensing, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Licensing, error) {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.Status == "" {
			l.Status = "PENDING"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO licensings (id, tenant_id, customer_id, vehicle_plate, reference_year, due_date, amount, status)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5,
				NULLIF($6, '0001-01-01 00:00:00+00'::timestamptz)::date, $7::numeric, $8)
			RETURNING created_at, updated_at
		`, l.ID, l.TenantID, l.CustomerID, l.VehiclePlate, l.ReferenceYear, l.DueDate, l.Amount, l.Status).
			Scan(&l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return Licensing{}, err
		}
		return l, nil
	})
}

func (r *Repository) ListLicensings(ctx context.Context, tenantID string, limit int) ([]Licensing, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Licensing, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, COALESCE(customer_id::text, ''), vehicle_plate, reference_year,
				COALESCE(due_date, '0001-01-01'::date), amount::text, status, created_at, updated_at
			FROM licensings
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Licensing
		for rows.Next() {
			var l Licensing
			if err := rows.Scan(&l.ID, &l.TenantID, &l.CustomerID, &l.VehiclePlate, &l.ReferenceYear,
				&l.DueDate, &l.Amount, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, l)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

// Transfer is an ownership transfer between two customers.
type Transfer struct {
	ID           string
	TenantID     string
	VehiclePlate string
	SellerID     string
	BuyerID      string
	Amount       string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Repository) CreateTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Transfer, error) {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Status == "" {
			t.Status = "PENDING"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO transfers (id, tenant_id, vehicle_plate, seller_id, buyer_id, amount, status)
			VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6::numeric, $7)
			RETURNING created_at, updated_at
		`, t.ID, t.TenantID, t.VehiclePlate, t.SellerID, t.BuyerID, t.Amount, t.Status).
			Scan(&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return Transfer{}, err
		}
		return t, nil
	})
}

func (r *Repository) ListTransfers(ctx context.Context, tenantID string, limit int) ([]Transfer, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Transfer, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, vehicle_plate, COALESCE(seller_id::text, ''), COALESCE(buyer_id::text, ''),
				amount::text, status, created_at, updated_at
			FROM transfers
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Transfer
		for rows.Next() {
			var t Transfer
			if err := rows.Scan(&t.ID, &t.TenantID, &t.VehiclePlate, &t.SellerID, &t.BuyerID,
				&t.Amount, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

// Registration is a first registration / plate issuance request.
type Registration struct {
	ID           string
	TenantID     string
	CustomerID   string
	VehiclePlate string
	Kind         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Repository) CreateRegistration(ctx context.Context, reg Registration) (Registration, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Registration, error) {
		if reg.ID == "" {
			reg.ID = uuid.NewString()
		}
		if reg.Status == "" {
			reg.Status = "PENDING"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO registrations (id, tenant_id, customer_id, vehicle_plate, kind, status)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6)
			RETURNING created_at, updated_at
		`, reg.ID, reg.TenantID, reg.CustomerID, reg.VehiclePlate, reg.Kind, reg.Status).
			Scan(&reg.CreatedAt, &reg.UpdatedAt)
		if err != nil {
			return Registration{}, err
		}
		return reg, nil
	})
}

func (r *Repository) ListRegistrations(ctx context.Context, tenantID string, limit int) ([]Registration, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Registration, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, COALESCE(customer_id::text, ''), vehicle_plate, kind, status, created_at, updated_at
			FROM registrations
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Registration
		for rows.Next() {
			var reg Registration
			if err := rows.Scan(&reg.ID, &reg.TenantID, &reg.CustomerID, &reg.VehiclePlate, &reg.Kind,
				&reg.Status, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, reg)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

// Unlock is a request to lift an administrative or judicial block on a
// vehicle record.
type Unlock struct {
	ID           string
	TenantID     string
	CustomerID   string
	VehiclePlate string
	BlockKind    string
	Authority    string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Repository) CreateUnlock(ctx context.Context, u Unlock) (Unlock, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Unlock, error) {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Status == "" {
			u.Status = "PENDING"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO unlocks (id, tenant_id, customer_id, vehicle_plate, block_kind, authority, status)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`, u.ID, u.TenantID, u.CustomerID, u.VehiclePlate, u.BlockKind, u.Authority, u.Status).
			Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return Unlock{}, err
		}
		return u, nil
	})
}

func (r *Repository) ListUnlocks(ctx context.Context, tenantID string, limit int) ([]Unlock, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Unlock, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, COALESCE(customer_id::text, ''), vehicle_plate, block_kind, authority, status, created_at, updated_at
			FROM unlocks
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Unlock
		for rows.Next() {
			var u Unlock
			if err := rows.Scan(&u.ID, &u.TenantID, &u.CustomerID, &u.VehiclePlate, &u.BlockKind,
				&u.Authority, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, u)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

// documentTables whitelists the tables UpdateDocumentStatus may touch.
var documentTables = map[string]bool{
	"licensings":    true,
	"transfers":     true,
	"registrations": true,
	"unlocks":       true,
}

// UpdateDocumentStatus transitions one of the document workflows. The
// table name is validated against a whitelist before being interpolated.
func (r *Repository) UpdateDocumentStatus(ctx context.Context, table, tenantID, id, status string) error {
	if !documentTables[table] {
		return fmt.Errorf("unknown document table %q", table)
	}
	return db.Retry(ctx, r.retry, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
			UPDATE %s
			SET status = $3, updated_at = now()
			WHERE tenant_id = $1 AND id = $2
		`, table), tenantID, id, status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}
