package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Attribute header keys carried on every published envelope. Consumers
// filter on these without deserializing the payload.
const (
	HeaderEventID   = "eventId"
	HeaderEventType = "eventType"
	HeaderTenantID  = "tenantId"
	HeaderSource    = "source"
)

// EventMeta is the canonical metadata carried on broker messages across
// services.
type EventMeta struct {
	EventID   string
	EventType string
	TenantID  string
	Source    string
}

func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
		TenantID:  HeaderValue(msg.Headers, HeaderTenantID),
		Source:    HeaderValue(msg.Headers, HeaderSource),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
