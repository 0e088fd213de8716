// Package consumer reads domain events off the per-tenant topics and
// hands them to the relay.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/despasys/despasys/libs/kafkax"
	"github.com/despasys/despasys/services/relay-service/internal/relay"
)

type Consumer struct {
	reader *kafka.Reader
	relay  *relay.Relay
	logger *slog.Logger
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

func New(logger *slog.Logger, r *relay.Relay, cfg Config) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: reader, relay: r, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
		ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)

		event := decodeEvent(msg)
		if _, err := c.relay.Store(ctxSpan, event); err != nil {
			c.logger.Error("relay store failed",
				"err", err,
				"topic", msg.Topic,
				"eventId", event.EventID)
			span.RecordError(err)
		}
		span.End()
	}
}

// decodeEvent unmarshals the envelope and backfills identity fields from
// the message headers when the payload omits them.
func decodeEvent(msg kafka.Message) relay.Event {
	var event relay.Event
	_ = json.Unmarshal(msg.Value, &event)

	meta := kafkax.ExtractEventMeta(msg)
	if event.EventID == "" {
		event.EventID = meta.EventID
	}
	if event.EventType == "" {
		event.EventType = meta.EventType
	}
	if event.TenantID == "" {
		event.TenantID = meta.TenantID
	}
	if event.Source == "" {
		event.Source = meta.Source
	}
	return event
}
