package kafkax

import (
	"reflect"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Topic: "despasys-tenant-t1-processes",
		Key:   []byte("proc-1"),
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte("evt-1")},
			{Key: HeaderEventType, Value: []byte("processes")},
			{Key: HeaderTenantID, Value: []byte("t1")},
			{Key: HeaderSource, Value: []byte("web")},
		},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "processes" || meta.TenantID != "t1" || meta.Source != "web" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestExtractEventMeta_Fallbacks(t *testing.T) {
	msg := kafka.Message{
		Topic: "despasys-tenant-t1-clients",
		Key:   []byte("client-7"),
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "client-7" {
		t.Fatalf("expected key fallback for event id, got %q", meta.EventID)
	}
	if meta.EventType != "despasys-tenant-t1-clients" {
		t.Fatalf("expected topic fallback for event type, got %q", meta.EventType)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
