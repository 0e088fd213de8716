package kafkax

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// TopicAdmin checks and creates topics against the cluster. Existence is
// re-validated on every call on purpose: tenants come and go and a local
// "known topics" cache would hide deletions.
type TopicAdmin struct {
	client            *kafka.Client
	NumPartitions     int
	ReplicationFactor int
}

func NewTopicAdmin(brokers []string) *TopicAdmin {
	addrs := make([]string, len(brokers))
	copy(addrs, brokers)
	return &TopicAdmin{
		client:            &kafka.Client{Addr: kafka.TCP(addrs...)},
		NumPartitions:     1,
		ReplicationFactor: 1,
	}
}

func (a *TopicAdmin) TopicExists(ctx context.Context, topic string) (bool, error) {
	resp, err := a.client.Metadata(ctx, &kafka.MetadataRequest{
		Topics: []string{topic},
	})
	if err != nil {
		return false, err
	}
	for _, t := range resp.Topics {
		if t.Name != topic {
			continue
		}
		if t.Error != nil {
			if errors.Is(t.Error, kafka.UnknownTopicOrPartition) {
				return false, nil
			}
			return false, t.Error
		}
		return true, nil
	}
	return false, nil
}

func (a *TopicAdmin) CreateTopic(ctx context.Context, topic string) error {
	resp, err := a.client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic,
			NumPartitions:     a.NumPartitions,
			ReplicationFactor: a.ReplicationFactor,
		}},
	})
	if err != nil {
		return err
	}
	if terr := resp.Errors[topic]; terr != nil && !errors.Is(terr, kafka.TopicAlreadyExists) {
		return terr
	}
	return nil
}
