// Package storage owns the authoritative reads and writes of domain
// records. Every operation goes through the retry wrapper so callers are
// shielded from the serverless Postgres dropping idle connections.
package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/despasys/despasys/libs/db"
	"github.com/google/uuid"
)

type Repository struct {
	pool  *db.Pool
	retry db.RetryOptions
}

func NewRepository(pool *db.Pool, logger *slog.Logger) *Repository {
	return &Repository{
		pool: pool,
		retry: db.RetryOptions{
			Reconnect: pool.Reconnect,
			Logger:    logger,
		},
	}
}

// newNumber builds a human-facing document number such as PRC-20260901-3F2A.
// Uniqueness comes from the random suffix, not from a sequence, so two
// instances can generate numbers without coordination.
func newNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:4]
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}
