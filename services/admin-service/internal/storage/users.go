package storage

import (
	"context"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

type User struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (User, error) {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO users (id, tenant_id, email, name, password_hash, role, active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			RETURNING created_at
		`, u.ID, u.TenantID, u.Email, u.Name, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
		if err != nil {
			return User{}, err
		}
		u.Active = true
		return u, nil
	})
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return db.WithRetry(ctx, r.retry, func(ctx context.Context) (User, error) {
		var u User
		err := r.pool.QueryRow(ctx, `
			SELECT id::text, tenant_id::text, email, name, password_hash, role, active, created_at
			FROM users
			WHERE email = $1 AND active
		`, email).Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
		return u, err
	})
}
