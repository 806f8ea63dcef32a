package hub

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ReadingsStream and ReadingsSubject name where readings land in JetStream.
const (
	ReadingsStream  = "READINGS"
	ReadingsSubject = "flood.readings"
)

// NATSSink publishes every broadcast payload to JetStream so external
// consumers can replay readings. It participates in the hub as an ordinary
// listener and shares its drop-on-failure semantics.
type NATSSink struct {
	logger *zap.Logger
	js     nats.JetStreamContext
}

// NewNATSSink ensures the readings stream exists and returns the sink.
func NewNATSSink(logger *zap.Logger, js nats.JetStreamContext) (*NATSSink, error) {
	_, err := js.StreamInfo(ReadingsStream)
	if err != nil {
		if err != nats.ErrStreamNotFound {
			return nil, fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     ReadingsStream,
			Subjects: []string{"flood.*"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create readings stream: %w", err)
		}
		logger.Info("Created readings stream", zap.String("name", ReadingsStream))
	}

	return &NATSSink{logger: logger.Named("nats-sink"), js: js}, nil
}

// ID implements Listener.
func (s *NATSSink) ID() string { return "nats-sink" }

// Send implements Listener.
func (s *NATSSink) Send(payload []byte) error {
	if _, err := s.js.Publish(ReadingsSubject, payload); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}
	return nil
}

// Close implements Listener. The NATS connection is owned by the caller.
func (s *NATSSink) Close() error { return nil }
