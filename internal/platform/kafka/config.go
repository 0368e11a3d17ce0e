package kafka

import "time"

// ProducerConfig holds configuration for the Kafka producer.
type ProducerConfig struct {
	Brokers         string
	ClientID        string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// DefaultProducerConfig returns defaults for alert delivery. Alerts are rare
// and must not be lost, so every in-sync replica acknowledges.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		ClientID:        "tiergate",
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}
}
