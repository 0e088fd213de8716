package dualwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/despasys/despasys/libs/kafkax"
)

// TopicManager is what the publisher needs from kafkax.TopicAdmin.
type TopicManager interface {
	TopicExists(ctx context.Context, topic string) (bool, error)
	CreateTopic(ctx context.Context, topic string) error
}

// MessageWriter is what the publisher needs from kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Envelope is the wire format of every domain event.
type Envelope struct {
	EventID   string         `json:"eventId"`
	EventType string         `json:"eventType"`
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	Source    string         `json:"source"`
	TenantID  string         `json:"tenantId"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Publisher writes domain events to per-tenant topics, creating topics
// lazily on first use. Existence is checked on every publish rather than
// cached, trading a metadata round trip for correctness when topics are
// dropped out of band.
type Publisher struct {
	admin  TopicManager
	writer MessageWriter
	logger *slog.Logger

	prefix string
	source string
	now    func() time.Time
	newID  func() string
}

func NewPublisher(admin TopicManager, writer MessageWriter, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		admin:  admin,
		writer: writer,
		logger: logger,
		prefix: prefix,
		source: "web",
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// TopicName builds the per-tenant topic: <prefix>-tenant-<tenant>-<eventType>.
func (p *Publisher) TopicName(tenantID, eventType string) string {
	return fmt.Sprintf("%s-tenant-%s-%s", p.prefix, tenantID, eventType)
}

func (p *Publisher) ensureTopic(ctx context.Context, topic string) error {
	exists, err := p.admin.TopicExists(ctx, topic)
	if err != nil {
		return fmt.Errorf("check topic %s: %w", topic, err)
	}
	if exists {
		return nil
	}
	if err := p.admin.CreateTopic(ctx, topic); err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	p.logger.Info("topic created", "topic", topic)
	return nil
}

// PublishEvent wraps data in a fresh envelope and writes it to the
// tenant's topic for eventType. Returns the generated eventId.
func (p *Publisher) PublishEvent(ctx context.Context, tenantID, eventType string, data map[string]any, metadata map[string]any) (string, error) {
	topic := p.TopicName(tenantID, eventType)
	if err := p.ensureTopic(ctx, topic); err != nil {
		return "", err
	}

	env := Envelope{
		EventID:   p.newID(),
		EventType: eventType,
		Timestamp: p.now().UTC().Format(time.RFC3339Nano),
		Version:   "1.0",
		Source:    p.source,
		TenantID:  tenantID,
		Data:      data,
		Metadata:  metadata,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	headers := []kafka.Header{
		{Key: kafkax.HeaderEventID, Value: []byte(env.EventID)},
		{Key: kafkax.HeaderEventType, Value: []byte(eventType)},
		{Key: kafkax.HeaderTenantID, Value: []byte(tenantID)},
		{Key: kafkax.HeaderSource, Value: []byte(env.Source)},
	}
	headers = kafkax.InjectTraceHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(env.EventID),
		Value:   payload,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("write to %s: %w", topic, err)
	}
	return env.EventID, nil
}

// EnsureTenantTopics pre-creates the standard topic set for a tenant so
// consumers can subscribe before the first write lands.
func (p *Publisher) EnsureTenantTopics(ctx context.Context, tenantID string) error {
	for _, eventType := range TenantEventTypes {
		if err := p.ensureTopic(ctx, p.TopicName(tenantID, eventType)); err != nil {
			return err
		}
	}
	return nil
}
