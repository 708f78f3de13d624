package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/FindMalek/dukkani-sub000/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic on brokers. Writes are async so
// publishing never holds up a request; delivery failures are logged by the
// writer's completion callback.
func NewKafkaWriter(brokers []string, topic string, completion func(messages []kafka.Message, err error)) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion:             completion,
	}
}

// KafkaNotifier publishes order events as JSON. Messages are keyed by
// "order-<event>-<id>"; the hash balancer keeps one order's events together.
type KafkaNotifier struct {
	writer MessageWriter
}

// NewKafkaNotifier creates a notifier writing through w.
func NewKafkaNotifier(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) OrderCreated(ctx context.Context, order *models.Order) error {
	return n.publish(ctx, "created", NewOrderEvent(EventOrderCreated, order))
}

func (n *KafkaNotifier) OrderStatusChanged(ctx context.Context, order *models.Order) error {
	return n.publish(ctx, "updated", NewOrderEvent(EventOrderStatusChanged, order))
}

func (n *KafkaNotifier) OrderDeleted(ctx context.Context, storeID, orderID string) error {
	return n.publish(ctx, "deleted", &OrderEvent{
		Event:     EventOrderDeleted,
		OrderID:   orderID,
		StoreID:   storeID,
		Timestamp: time.Now().UTC(),
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, key string, event *OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// order-created-bella-shop-7K3QX9ZD
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", key, event.OrderID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
			{Key: "store_id", Value: []byte(event.StoreID)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Event, err)
	}
	return nil
}

// Close flushes pending messages.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
