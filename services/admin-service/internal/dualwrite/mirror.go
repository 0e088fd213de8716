package dualwrite

import (
	"context"
	"log/slog"
	"time"

	"github.com/despasys/despasys/libs/rtdb"
)

// Mirror pushes denormalized projections into the realtime store so the
// dashboard can render without hitting Postgres. A mirror failure is
// logged and swallowed: the relational write already committed and the
// client must still get its 2xx.
type Mirror struct {
	store  rtdb.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewMirror(store rtdb.Store, logger *slog.Logger) *Mirror {
	return &Mirror{store: store, logger: logger, now: time.Now}
}

// Path returns the realtime-store location for an entity.
func Path(tenantID, entityType, id string) string {
	return rtdb.Join("tenants", tenantID, entityType, id)
}

// Sync overwrites the projection at tenants/<tenant>/<entityType>/<id>,
// stamping lastSynced (unix millis). Returns a Result, never an error.
func (m *Mirror) Sync(ctx context.Context, tenantID, entityType, id string, projection map[string]any) Result {
	if m == nil || m.store == nil {
		return resultSkipped()
	}
	doc := make(map[string]any, len(projection)+1)
	for k, v := range projection {
		doc[k] = v
	}
	doc["lastSynced"] = m.now().UnixMilli()

	path := Path(tenantID, entityType, id)
	if err := m.store.Set(ctx, path, doc); err != nil {
		m.logger.Error("realtime mirror failed",
			"path", path,
			"tenantId", tenantID,
			"entityType", entityType,
			"error", err)
		return resultErr(err)
	}
	return resultOK()
}

// Remove deletes a mirrored projection. Same best-effort contract as Sync.
func (m *Mirror) Remove(ctx context.Context, tenantID, entityType, id string) Result {
	if m == nil || m.store == nil {
		return resultSkipped()
	}
	path := Path(tenantID, entityType, id)
	if err := m.store.Delete(ctx, path); err != nil {
		m.logger.Error("realtime mirror delete failed", "path", path, "error", err)
		return resultErr(err)
	}
	return resultOK()
}
