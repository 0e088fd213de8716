package storage

import (
	"context"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

// Transaction is a financial entry, either income (RECEITA) or expense
// (DESPESA).
type Transaction struct {
	ID            string
	TenantID      string
	Number        string
	ProcessID     string
	CustomerID    string
	Kind          string // RECEITA | DESPESA
	Category      string
	Description   string
	Amount        string
	DueDate       time.Time
	PaidDate      time.Time
	Status        string // PAGO | PENDENTE | VENCIDO
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
}

func (r *Repository) CreateTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (Transaction, error) {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Number == "" {
			t.Number = newNumber("TXN", time.Now().UTC())
		}
		if t.Status == "" {
			t.Status = "PENDENTE"
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO transactions (id, tenant_id, number, process_id, customer_id, kind, category, description,
				amount, due_date, paid_date, status, payment_method, notes)
			VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, $7, $8,
				$9::numeric, NULLIF($10, '0001-01-01 00:00:00+00'::timestamptz)::date,
				NULLIF($11, '0001-01-01 00:00:00+00'::timestamptz)::date, $12, NULLIF($13, ''), $14)
			RETURNING created_at
		`, t.ID, t.TenantID, t.Number, t.ProcessID, t.CustomerID, t.Kind, t.Category, t.Description,
			t.Amount, t.DueDate, t.PaidDate, t.Status, t.PaymentMethod, t.Notes).Scan(&t.CreatedAt)
		if err != nil {
			return Transaction{}, err
		}
		return t, nil
	})
}

func (r *Repository) ListTransactions(ctx context.Context, tenantID, kind, status string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 200
	}
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) ([]Transaction, error) {
		rows, err := r.pool.Query(ctx, `
			SELECT id::text, tenant_id::text, number, COALESCE(process_id::text, ''), COALESCE(customer_id::text, ''),
				kind, category, description, amount::text,
				COALESCE(due_date, '0001-01-01'::date), COALESCE(paid_date, '0001-01-01'::date),
				status, COALESCE(payment_method, ''), notes, created_at
			FROM transactions
			WHERE tenant_id = $1 AND ($2 = '' OR kind = $2) AND ($3 = '' OR status = $3)
			ORDER BY created_at DESC
			LIMIT $4
		`, tenantID, kind, status, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Transaction
		for rows.Next() {
			var t Transaction
			if err := rows.Scan(&t.ID, &t.TenantID, &t.Number, &t.ProcessID, &t.CustomerID,
				&t.Kind, &t.Category, &t.Description, &t.Amount, &t.DueDate, &t.PaidDate,
				&t.Status, &t.PaymentMethod, &t.Notes, &t.CreatedAt); err != nil {
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

// CashFlow aggregates paid and pending amounts over a period.
type CashFlow struct {
	TotalIncome    string
	TotalExpense   string
	Net            string
	PendingIncome  string
	PendingExpense string
}

func (r *Repository) CashFlowSummary(ctx context.Context, tenantID string, from, to time.Time) (CashFlow, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (CashFlow, error) {
		var cf CashFlow
		err := r.pool.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(amount) FILTER (WHERE kind = 'RECEITA' AND status = 'PAGO'), 0)::text,
				COALESCE(SUM(amount) FILTER (WHERE kind = 'DESPESA' AND status = 'PAGO'), 0)::text,
				(COALESCE(SUM(amount) FILTER (WHERE kind = 'RECEITA' AND status = 'PAGO'), 0)
					- COALESCE(SUM(amount) FILTER (WHERE kind = 'DESPESA' AND status = 'PAGO'), 0))::text,
				COALESCE(SUM(amount) FILTER (WHERE kind = 'RECEITA' AND status <> 'PAGO'), 0)::text,
				COALESCE(SUM(amount) FILTER (WHERE kind = 'DESPESA' AND status <> 'PAGO'), 0)::text
			FROM transactions
			WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		`, tenantID, from, to).Scan(&cf.TotalIncome, &cf.TotalExpense, &cf.Net, &cf.PendingIncome, &cf.PendingExpense)
		return cf, err
	})
}
