package hub

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink writes broadcast payloads to a Kafka topic. Like the NATS sink it
// is a plain hub listener.
type KafkaSink struct {
	logger  *zap.Logger
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaSink creates a sink writing to topic on the given brokers.
func NewKafkaSink(logger *zap.Logger, brokers []string, topic string, timeout time.Duration) *KafkaSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaSink{
		logger: logger.Named("kafka-sink"),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		timeout: timeout,
	}
}

// ID implements Listener.
func (s *KafkaSink) ID() string { return "kafka-sink" }

// Send implements Listener.
func (s *KafkaSink) Send(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}

// Close implements Listener.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
