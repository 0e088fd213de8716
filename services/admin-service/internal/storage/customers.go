package storage

import (
	"context"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

type Customer struct {
	ID         string
	TenantID   string
	Name       string
	Document   string // CPF or CNPJ, digits only
	PersonType string // PESSOA_FISICA | PESSOA_JURIDICA
	Phone      string
	Email      string
	City       string
	State      string
	Address    string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Customer, error) {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Status == "" {
			c.Status = "ATIVO"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO customers (id, tenant_id, name, document, person_type, phone, email, city, state, address, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at
		`, c.ID, c.TenantID, c.Name, c.Document, c.PersonType, c.Phone, c.Email, c.City, c.State, c.Address, c.Status).
			Scan(&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return Customer{}, err
		}
		return c, nil
	})
}

func (r *Repository) GetCustomer(ctx context.Context, tenantID, id string) (Customer, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Customer, error) {
		var c Customer
		err := r.pool.QueryRow(ctx, `
			SELECT id::text, tenant_id::text, name, document, person_type, phone,
				COALESCE(email, ''), COALESCE(city, ''), state, COALESCE(address, ''), status, created_at, updated_at
			FROM customers
			WHERE tenant_id = $1 AND id = $2
		`, tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Document, &c.PersonType, &c.Phone,
			&c.Email, &c.City, &c.State, &c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
}

// FindCustomerByDocument backs the duplicate check on create. A not-found
// result is returned as pgx.ErrNoRows.
func (r *Repository) FindCustomerByDocument(ctx context.Context, tenantID, document string) (Customer, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Customer, error) {
		var c Customer
		err := r.pool.QueryRow(ctx, `
			SELECT id::text, tenant_id::text, name, document, person_type, phone,
				COALESCE(email, ''), COALESCE(city, ''), state, COALESCE(address, ''), status, created_at, updated_at
			FROM customers
			WHERE tenant_id = $1 AND document = $2
		`, tenantID, document).Scan(&c.ID, &c.TenantID, &c.Name, &c.Document, &c.PersonType, &c.Phone,
			&c.Email, &c.City, &c.State, &c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
}

func (r *Repository) ListCustomers(ctx context.Context, tenantID string, limit int) ([]Customer, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Customer, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, name, document, person_type, phone,
				COALESCE(email, ''), COALESCE(city, ''), state, COALESCE(address, ''), status, created_at, updated_at
			FROM customers
			WHERE tenant_id = $1
			ORDER BY name ASC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Customer
		for rows.Next() {
			var c Customer
			if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Document, &c.PersonType, &c.Phone,
				&c.Email, &c.City, &c.State, &c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) (Customer, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Customer, error) {
		err := r.pool.QueryRow(ctx, `
			UPDATE customers
			SET name = $3, phone = $4, email = $5, city = $6, state = $7, address = $8, status = $9, updated_at = now()
			WHERE tenant_id = $1 AND id = $2
			RETURNING created_at, updated_at
		`, c.TenantID, c.ID, c.Name, c.Phone, c.Email, c.City, c.State, c.Address, c.Status).
			Scan(&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return Customer{}, err
		}
		return c, nil
	})
}
