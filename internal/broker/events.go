package broker

import (
	"context"
	"encoding/json"

	"order-management-service/internal/models"
	"order-management-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes an order-created event keyed by order id
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, event.OrderID, uuid.NewString(), models.EventTypeOrderCreated, event)
}

// EventHandler decodes incoming payment events and hands them to a callback
type EventHandler struct {
	onPaymentCreated func(context.Context, *models.PaymentEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnPaymentCreated registers a handler for payment events
func (eh *EventHandler) OnPaymentCreated(handler func(context.Context, *models.PaymentEvent) error) {
	eh.onPaymentCreated = handler
}

// HandleMessage processes one payment message. Processing failures are
// logged and swallowed so a bad message never blocks the partition.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	logger := eh.logger.With(
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset))

	if eventType := header(msg, HeaderEventType); eventType != "" && eventType != models.EventTypePaymentCreated {
		logger.Debug("Ignoring event", zap.String("event_type", eventType))
		return nil
	}

	var event models.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		util.PaymentEventsTotal.WithLabelValues("malformed").Inc()
		logger.Error("Failed to unmarshal payment event", zap.Error(err))
		return nil
	}

	if eh.onPaymentCreated == nil {
		logger.Warn("No handler registered for payment events")
		return nil
	}

	if err := eh.onPaymentCreated(ctx, &event); err != nil {
		logger.Error("Failed to process payment event",
			zap.String("payment_id", event.PaymentID),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	}
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
