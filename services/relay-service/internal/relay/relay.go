// Package relay lands domain events in the realtime store so connected
// dashboards see them without polling. Unlike the admin side's mirror,
// writes here are not best-effort: a failed write must surface so the
// delivery is retried.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/despasys/despasys/libs/rtdb"
)

var (
	ErrMissingTenant    = errors.New("relay: event has no tenantId")
	ErrMissingEventType = errors.New("relay: event has no eventType")
	ErrMissingEventID   = errors.New("relay: event has no eventId")
)

// Event is the decoded envelope as delivered by the broker or the push
// endpoint.
type Event struct {
	EventID   string         `json:"eventId"`
	EventType string         `json:"eventType"`
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	Source    string         `json:"source"`
	TenantID  string         `json:"tenantId"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validate reports the first missing required field. It runs before any
// store access so malformed events never produce partial writes.
func (e Event) Validate() error {
	if e.TenantID == "" {
		return ErrMissingTenant
	}
	if e.EventType == "" {
		return ErrMissingEventType
	}
	if e.EventID == "" {
		return ErrMissingEventID
	}
	return nil
}

// Written describes one realtime-store write performed for an event.
type Written struct {
	Path    string         `json:"path"`
	Payload map[string]any `json:"-"`
}

type Relay struct {
	store  rtdb.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store rtdb.Store, logger *slog.Logger) *Relay {
	return &Relay{store: store, logger: logger, now: time.Now}
}

// action digs the performed action out of the payload; events published
// before the field existed land as "unknown".
func (e Event) action() string {
	if v, ok := e.Data["action"].(string); ok && v != "" {
		return v
	}
	if v, ok := e.Metadata["action"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

func (r *Relay) document(e Event) map[string]any {
	ts := e.Timestamp
	if ts == "" {
		ts = r.now().UTC().Format(time.RFC3339Nano)
	}
	source := e.Source
	if source == "" {
		source = "web"
	}
	doc := map[string]any{
		"eventId":   e.EventID,
		"eventType": e.EventType,
		"timestamp": ts,
		"version":   e.Version,
		"source":    source,
		"tenantId":  e.TenantID,
		"action":    e.action(),
		"data":      e.Data,
	}
	if e.Metadata != nil {
		doc["metadata"] = e.Metadata
	}
	return doc
}

// Store validates the event and writes it under
// tenants/<tenant>/events/<eventType>/<eventId>. Notification events are
// additionally fanned out to tenants/<tenant>/notifications/<eventId>.
func (r *Relay) Store(ctx context.Context, event Event) ([]Written, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	doc := r.document(event)
	eventPath := rtdb.Join("tenants", event.TenantID, "events", event.EventType, event.EventID)
	if err := r.store.Set(ctx, eventPath, doc); err != nil {
		return nil, err
	}
	written := []Written{{Path: eventPath, Payload: doc}}

	// Notifications get a second, flattened copy so mobile clients can
	// subscribe to a single feed without unwrapping envelopes.
	if event.EventType == "notifications" {
		notif := make(map[string]any, len(event.Data)+4)
		for k, v := range event.Data {
			notif[k] = v
		}
		notif["id"] = event.EventID
		notif["createdAt"] = doc["timestamp"]
		notif["source"] = doc["source"]
		notif["lastSyncedAt"] = r.now().UnixMilli()

		notifPath := rtdb.Join("tenants", event.TenantID, "notifications", event.EventID)
		if err := r.store.Set(ctx, notifPath, notif); err != nil {
			return written, err
		}
		written = append(written, Written{Path: notifPath, Payload: notif})
	}

	r.logger.Debug("event relayed",
		"tenantId", event.TenantID,
		"eventType", event.EventType,
		"eventId", event.EventID,
		"writes", len(written))
	return written, nil
}
