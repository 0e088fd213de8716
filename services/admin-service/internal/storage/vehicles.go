package storage

import (
	"context"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

type Vehicle struct {
	ID         string
	TenantID   string
	CustomerID string
	Plate      string
	Renavam    string
	Chassis    string
	Brand      string
	Model      string
	ModelYear  int
	Color      string
	CreatedAt  time.Time
}

func (r *Repository) CreateVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Vehicle, error) {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO vehicles (id, tenant_id, customer_id, plate, renavam, chassis, brand, model, model_year, color)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at
		`, v.ID, v.TenantID, v.CustomerID, v.Plate, v.Renavam, v.Chassis, v.Brand, v.Model, v.ModelYear, v.Color).
			Scan(&v.CreatedAt)
		if err != nil {
			return Vehicle{}, err
		}
		return v, nil
	})
}

func (r *Repository) ListVehicles(ctx context.Context, tenantID string, limit int) ([]Vehicle, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Vehicle, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, COALESCE(customer_id::text, ''), plate, renavam, chassis, brand, model, model_year, color, created_at
			FROM vehicles
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Vehicle
		for rows.Next() {
			var v Vehicle
			if err := rows.Scan(&v.ID, &v.TenantID, &v.CustomerID, &v.Plate, &v.Renavam, &v.Chassis,
				&v.Brand, &v.Model, &v.ModelYear, &v.Color, &v.CreatedAt); err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

func (r *Repository) GetVehicleByPlate(ctx context.Context, tenantID, plate string) (Vehicle, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Vehicle, error) {
		var v Vehicle
		err := r.pool.QueryRow(ctx, `
			SELECT id::text, tenant_id::text, COALESCE(customer_id::text, ''), plate, renavam, chassis, brand, model, model_year, color, created_at
			FROM vehicles
			WHERE tenant_id = $1 AND plate = $2
		`, tenantID, plate).Scan(&v.ID, &v.TenantID, &v.CustomerID, &v.Plate, &v.Renavam, &v.Chassis,
			&v.Brand, &v.Model, &v.ModelYear, &v.Color, &v.CreatedAt)
		return v, err
	})
}
