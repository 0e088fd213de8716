package storage

import (
	"context"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

// Report is a technical inspection report (laudo) for a vehicle.
type Report struct {
	ID           string
	TenantID     string
	VehiclePlate string
	Kind         string // CAUTELAR, TRANSFERENCIA, VISTORIA
	Result       string // APROVADO, REPROVADO, ""
	Notes        string
	Status       string
	InspectedAt  time.Time
	CreatedAt    time.Time
}

func (r *Repository) CreateReport(ctx context.Context, rep Report) (Report, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Report, error) {
		if rep.ID == "" {
			rep.ID = uuid.NewString()
		}
		if rep.Status == "" {
			rep.Status = "PENDING"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO reports (id, tenant_id, vehicle_plate, kind, result, notes, status, inspected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '0001-01-01 00:00:00+00'::timestamptz))
			RETURNING created_at
		`, rep.ID, rep.TenantID, rep.VehiclePlate, rep.Kind, rep.Result, rep.Notes, rep.Status, rep.InspectedAt).
			Scan(&rep.CreatedAt)
		if err != nil {
			return Report{}, err
		}
		return rep, nil
	})
}

func (r *Repository) ListReports(ctx context.Context, tenantID string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Report, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, vehicle_plate, kind, result, notes, status,
				COALESCE(inspected_at, '0001-01-01'::timestamptz), created_at
			FROM reports
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Report
		for rows.Next() {
			var rep Report
			if err := rows.Scan(&rep.ID, &rep.TenantID, &rep.VehiclePlate, &rep.Kind, &rep.Result,
				&rep.Notes, &rep.Status, &rep.InspectedAt, &rep.CreatedAt); err != nil {
				return nil, err
			}
			out = append(out, rep)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}

// Evaluation is a market-value appraisal of a vehicle.
type Evaluation struct {
	ID             string
	TenantID       string
	VehiclePlate   string
	FipeCode       string
	MarketValue    string
	EvaluatedValue string
	Status         string
	CreatedAt      time.Time
}

func (r *Repository) CreateEvaluation(ctx context.Context, e Evaluation) (Evaluation, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Evaluation, error) {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Status == "" {
			e.Status = "PENDING"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO evaluations (id, tenant_id, vehicle_plate, fipe_code, market_value, evaluated_value, status)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
			RETURNING created_at
		`, e.ID, e.TenantID, e.VehiclePlate, e.FipeCode, e.MarketValue, e.EvaluatedValue, e.Status).
			Scan(&e.CreatedAt)
		if err != nil {
			return Evaluation{}, err
		}
		return e, nil
	})
}

func (r *Repository) ListEvaluations(ctx context.Context, tenantID string, limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Evaluation, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, vehicle_plate, fipe_code, market_value::text, evaluated_value::text, status, created_at
			FROM evaluations
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tenantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Evaluation
		for rows.Next() {
			var e Evaluation
			if err := rows.Scan(&e.ID, &e.TenantID, &e.VehiclePlate, &e.FipeCode, &e.MarketValue,
				&e.EvaluatedValue, &e.Status, &e.CreatedAt); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return out, nil
	})
}
