//go:build integration

package alert_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"tiergate/internal/alert"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/platform/kafka"
	"tiergate/internal/platform/kafka/producer"
	id "tiergate/pkg/domain"
	"tiergate/pkg/testutil/containers"
)

func TestKafkaSinkDeliversToTopic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	kc := containers.GetManager().GetKafka(t)
	topic := "alerts-integration"
	require.NoError(t, kc.CreateTopic(ctx, topic))

	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = kc.Brokers
	prod, err := producer.New(cfg, nil)
	require.NoError(t, err)
	defer prod.Close(ctx)

	resultID := id.NewResultID()
	sink := alert.NewKafkaSink(prod, topic)
	require.NoError(t, sink.Notify(ctx, ports.Alert{
		Severity:  ports.SeverityCritical,
		Title:     "emergency override applied",
		ResultID:  resultID,
		Approvers: []string{"a", "b"},
		Timestamp: time.Now().UTC(),
	}))

	consumer, err := kc.NewConsumer("alerts-integration-group", topic)
	require.NoError(t, err)
	defer consumer.Close()

	record := kc.WaitForRecord(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == resultID.String()
	})
	require.NotNil(t, record)

	var got ports.Alert
	require.NoError(t, json.Unmarshal(record.Value, &got))
	require.Equal(t, resultID, got.ResultID)
	require.Equal(t, ports.SeverityCritical, got.Severity)
}
