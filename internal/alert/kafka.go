package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"tiergate/internal/pipeline/ports"
	"tiergate/internal/platform/kafka/producer"
)

// DefaultTopic receives override alerts when no topic is configured.
const DefaultTopic = "tiergate.alerts"

// Publisher is the subset of the kafka producer the sink needs.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes alerts as JSON records keyed by result ID, so every
// alert for one result lands on the same partition.
type KafkaSink struct {
	publisher Publisher
	topic     string
}

// NewKafkaSink panics if publisher is nil.
func NewKafkaSink(publisher Publisher, topic string) *KafkaSink {
	if publisher == nil {
		panic("alert: kafka publisher is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{publisher: publisher, topic: topic}
}

func (s *KafkaSink) Notify(ctx context.Context, a ports.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(a.ResultID.String()),
		Value: payload,
		Headers: map[string]string{
			"severity":    string(a.Severity),
			"action_kind": a.ActionKind,
		},
	}
	if err := s.publisher.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for result %s: %w", a.ResultID, err)
	}
	return nil
}
