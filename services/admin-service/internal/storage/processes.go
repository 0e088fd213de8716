package storage

import (
	"context"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

type Process struct {
	ID           string
	TenantID     string
	Number       string
	Type         string // LICENCIAMENTO, TRANSFERENCIA, REGISTRO, DESBLOQUEIO, ...
	Status       string
	Priority     string
	CustomerID   string
	CustomerName string
	VehicleID    string
	Description  string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Repository) CreateProcess(ctx context.Context, p Process) (Process, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Process, error) {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Number == "" {
			p.Number = newNumber("PRC", time.Now().UTC())
		}
		if p.Status == "" {
			p.Status = "PENDING"
		}
		if p.Priority == "" {
			p.Priority = "MEDIUM"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO processes (id, tenant_id, number, type, status, priority, customer_id, vehicle_id, description, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, NULLIF($8, '')::uuid, $9, $10)
			RETURNING created_at, updated_at
		`, p.ID, p.TenantID, p.Number, p.Type, p.Status, p.Priority, p.CustomerID, p.VehicleID, p.Description, p.CreatedBy).
			Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return Process{}, err
		}
		if p.CustomerID != "" {
			// Joined name keeps the mirror projection self-contained.
			_ = r.pool.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, p.CustomerID).Scan(&p.CustomerName)
		}
		return p, nil
	})
}

func (r *Repository) GetProcess(ctx context.Context, tenantID, id string) (Process, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Process, error) {
		var p Process
		err := r.pool.QueryRow(ctx, `
			SELECT p.id::text, p.tenant_id::text, p.number, p.type, p.status, p.priority,
				COALESCE(p.customer_id::text, ''), COALESCE(c.name, ''), COALESCE(p.vehicle_id::text, ''),
				p.description, p.created_by, p.created_at, p.updated_at
			FROM processes p
			LEFT JOIN customers c ON c.id = p.customer_id
			WHERE p.tenant_id = $1 AND p.id = $2
		`, tenantID, id).Scan(&p.ID, &p.TenantID, &p.Number, &p.Type, &p.Status, &p.Priority,
			&p.CustomerID, &p.CustomerName, &p.VehicleID, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
}

func (r *Repository) ListProcesses(ctx context.Context, tenantID, status string, limit int) ([]Process, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Process, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT p.id::text, p.tenant_id::text, p.number, p.type, p.status, p.priority,
				COALESCE(p.customer_id::text, ''), COALESCE(c.name, ''), COALESCE(p.vehicle_id::text, ''),
				p.description, p.created_by, p.created_at, p.updated_at
			FROM processes p
			LEFT JOIN customers c ON c.id = p.customer_id
			WHERE p.tenant_id = $1 AND ($2 = '' OR p.status = $2)
			ORDER BY p.created_at DESC
			LIMIT $3
		`, tenantID, status, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Process
		for rows.Next() {
			var p Process
			if err := rows.Scan(&p.ID, &p.TenantID, &p.Number, &p.Type, &p.Status, &p.Priority,
				&p.CustomerID, &p.CustomerName, &p.VehicleID, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

// UpdateProcessStatus transitions a process and returns the updated row
// along with the status it had before, for the status_changed event.
func (r *Repository) UpdateProcessStatus(ctx context.Context, tenantID, id, newStatus, updatedBy string) (Process, string, error) {
	type result struct {
		process  Process
		previous string
	}
	res, err := db.WithRetry(ctx, r.retry, func(ctx context.Context) (result, error) {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return result{}, err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		var previous string
		if err := tx.QueryRow(ctx, `
			SELECT status FROM processes WHERE tenant_id = $1 AND id = $2 FOR UPDATE
		`, tenantID, id).Scan(&previous); err != nil {
			return result{}, err
		}

		var p Process
		err = tx.QueryRow(ctx, `
			UPDATE processes
			SET status = $3, updated_by = $4, updated_at = now()
			WHERE tenant_id = $1 AND id = $2
			RETURNING id::text, tenant_id::text, number, type, status, priority,
				COALESCE(customer_id::text, ''), COALESCE(vehicle_id::text, ''), description, created_by, created_at, updated_at
		`, tenantID, id, newStatus, updatedBy).Scan(&p.ID, &p.TenantID, &p.Number, &p.Type, &p.Status, &p.Priority,
			&p.CustomerID, &p.VehicleID, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return result{}, err
		}
		if p.CustomerID != "" {
			_ = tx.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, p.CustomerID).Scan(&p.CustomerName)
		}

		if err := tx.Commit(ctx); err != nil {
			return result{}, err
		}
		return result{process: p, previous: previous}, nil
	})
	if err != nil {
		return Process{}, "", err
	}
	return res.process, res.previous, nil
}
