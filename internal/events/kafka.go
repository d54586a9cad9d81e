package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaExporter forwards domain events to a Kafka topic, best-effort: a
// write failure is logged and never propagated to the request path. With no
// brokers or topic configured every method is a no-op.
type KafkaExporter struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaExporter creates the exporter.
func NewKafkaExporter(brokers []string, topic string, logger *zap.Logger) *KafkaExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(brokers) == 0 || topic == "" {
		return &KafkaExporter{logger: logger}
	}
	return &KafkaExporter{
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// RegisterHandlers subscribes the exporter to every event type.
func (e *KafkaExporter) RegisterHandlers(dispatcher Dispatcher) {
	if e.writer == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, e.handle)
	}
}

func (e *KafkaExporter) handle(ctx context.Context, event Event) error {
	if e.writer == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("marshal event for kafka", zap.Error(err), zap.String("event_id", event.ID))
		return nil
	}
	if err := e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TicketID),
		Value: body,
	}); err != nil {
		e.logger.Warn("write event to kafka",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (e *KafkaExporter) Close() error {
	if e.writer == nil {
		return nil
	}
	return e.writer.Close()
}
