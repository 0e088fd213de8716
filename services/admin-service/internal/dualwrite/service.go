package dualwrite

import (
	"context"
	"fmt"
	"log/slog"
)

// Service runs the mirror and the event publish after a relational write.
// Both are best-effort by default: the caller gets a SideEffects report
// but never an error. With strictEvents on, a failed publish is returned
// so the handler can surface a 5xx (operations that must not be lossy,
// e.g. financial postings, run behind it).
type Service struct {
	mirror       *Mirror
	publisher    *Publisher
	logger       *slog.Logger
	strictEvents bool
}

func NewService(mirror *Mirror, publisher *Publisher, logger *slog.Logger, strictEvents bool) *Service {
	return &Service{mirror: mirror, publisher: publisher, logger: logger, strictEvents: strictEvents}
}

// Record mirrors the projection and publishes a domain event for an
// entity that was just written. entityType doubles as the event type.
func (s *Service) Record(ctx context.Context, tenantID, entityType, id string, projection map[string]any, metadata map[string]any) (SideEffects, error) {
	var fx SideEffects

	fx.Mirror = s.mirror.Sync(ctx, tenantID, entityType, id, projection)

	if s.publisher == nil {
		fx.Event = resultSkipped()
		return fx, nil
	}
	eventID, err := s.publisher.PublishEvent(ctx, tenantID, entityType, projection, metadata)
	if err != nil {
		s.logger.Error("event publish failed",
			"tenantId", tenantID,
			"eventType", entityType,
			"entityId", id,
			"error", err)
		fx.Event = resultErr(err)
		if s.strictEvents {
			return fx, fmt.Errorf("publish %s event: %w", entityType, err)
		}
		return fx, nil
	}
	fx.Event = resultOK()
	fx.Event.EventID = eventID
	return fx, nil
}

// Notify publishes to the tenant's notifications topic and mirrors the
// notification document so connected dashboards pick it up immediately.
func (s *Service) Notify(ctx context.Context, tenantID, id string, notification map[string]any) (SideEffects, error) {
	return s.Record(ctx, tenantID, EntityNotifications, id, notification, nil)
}
