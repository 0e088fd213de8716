package storage

import (
	"context"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

type Tenant struct {
	ID        string
	Name      string
	Domain    string
	Plan      string
	Active    bool
	CreatedAt string
}

func (r *Repository) CreateTenant(ctx context.Context, name, domain, plan string) (Tenant, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Tenant, error) {
		t := Tenant{ID: uuid.NewString(), Name: name, Domain: domain, Plan: plan, Active: true}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO tenants (id, name, domain, plan)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at::text
		`, t.ID, t.Name, t.Domain, t.Plan).Scan(&t.CreatedAt)
		if err != nil {
			return Tenant{}, err
		}
		return t, nil
	})
}

func (r *Repository) GetTenantByDomain(ctx context.Context, domain string) (Tenant, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Tenant, error) {
		var t Tenant
		err := r.pool.QueryRow(ctx, `
			SELECT id::text, name, domain, plan, active, created_at::text
			FROM tenants
			WHERE domain = $1
		`, domain).Scan(&t.ID, &t.Name, &t.Domain, &t.Plan, &t.Active, &t.CreatedAt)
		return t, err
	})
}
