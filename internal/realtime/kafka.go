package realtime

import (
	"context"

	"github.com/segmentio/kafka-go"

	"restaurant-platform/internal/entity"
)

// KafkaFeed adapts a kafka reader to the Feed interface.
type KafkaFeed struct {
	reader *kafka.Reader
}

// NewKafkaFeed opens a reader on the change-feed topic.
func NewKafkaFeed(brokers []string, topic, groupID string) *KafkaFeed {
	return &KafkaFeed{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
	}
}

// Fetch blocks for the next change event. Parse failures come back wrapped
// in apperr.ErrValidation so the subscriber can skip them.
func (f *KafkaFeed) Fetch(ctx context.Context) (*entity.ChangeEvent, error) {
	msg, err := f.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return entity.ParseChangeEvent(msg.Value)
}

func (f *KafkaFeed) Close() error {
	return f.reader.Close()
}
