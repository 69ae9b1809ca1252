package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives session events when no topic is configured.
const DefaultTopic = "liveshop-session-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes session events to a Kafka topic. Messages are keyed
// by session id so a consumer sees each session's events in order.
type KafkaNotifier struct {
	writer messageWriter
}

// batchTimeout bounds how long the writer buffers messages before a flush.
const batchTimeout = 10 * time.Millisecond

// NewKafkaNotifier creates a notifier writing to topic on the given brokers.
// Writes are asynchronous; delivery failures are reported to logger.
func NewKafkaNotifier(logger *slog.Logger, topic string, brokers ...string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
		Async:                  true,
		Completion:             deliveryLogger(logger),
	}
	return &KafkaNotifier{writer: w}
}

func deliveryLogger(logger *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, msg := range msgs {
			logger.Warn("kafka delivery failed",
				"topic", msg.Topic,
				"session_id", string(msg.Key),
				"error", err,
			)
		}
	}
}

// Notify encodes the event as JSON and hands it to the writer.
func (n *KafkaNotifier) Notify(ctx context.Context, event session.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
