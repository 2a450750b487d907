package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"

	"stagecap/internal/logging"
)

// messageWriter is the subset of *kafka.Writer the service uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaService struct {
	writer messageWriter
	topic  string
	now    func() time.Time
	logger *slog.Logger
}

type kafkaDocument struct {
	Event   Event     `json:"event"`
	At      time.Time `json:"at"`
	Payload Payload   `json:"payload,omitempty"`
}

func newKafkaService(brokers []string, topic string, timeout time.Duration, logger *slog.Logger) *kafkaService {
	dialer := &net.Dialer{Timeout: timeout}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{
			Dial:        dialer.DialContext,
			DialTimeout: timeout,
		},
	}
	logger = logging.NewComponentLogger(logger, "notifications")
	logger.Debug("kafka notifier initialized", logging.Any("brokers", brokers), logging.String("topic", topic))
	return &kafkaService{writer: writer, topic: topic, now: time.Now, logger: logger}
}

func (k *kafkaService) Publish(ctx context.Context, event Event, payload Payload) error {
	doc := kafkaDocument{Event: event, At: k.now().UTC(), Payload: sanitize(payload)}
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode kafka notification: %w", err)
	}
	msg := kafka.Message{Key: []byte(payload.text("base")), Value: value}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish kafka notification to %s: %w", k.topic, err)
	}
	return nil
}

func (k *kafkaService) Close() error { return k.writer.Close() }

// sanitize converts error values so the payload encodes as JSON.
func sanitize(payload Payload) Payload {
	if len(payload) == 0 {
		return nil
	}
	out := make(Payload, len(payload))
	for key, value := range payload {
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = value
	}
	return out
}
