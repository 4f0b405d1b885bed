package worker

import (
	"context"

	"order-management-service/internal/broker"
	"order-management-service/internal/models"
	"order-management-service/internal/util"

	"go.uber.org/zap"
)

// PaymentStatusApplier is the order side of the payment flow
type PaymentStatusApplier interface {
	ApplyPaymentStatus(ctx context.Context, event *models.PaymentEvent) error
}

// PaymentWorker consumes payment events and moves orders accordingly
type PaymentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, orders PaymentStatusApplier) *PaymentWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentCreated(orders.ApplyPaymentStatus)

	return &PaymentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming payment events until ctx is cancelled
func (w *PaymentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting payment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the payment worker
func (w *PaymentWorker) Stop() error {
	w.logger.Info("Stopping payment worker")
	return w.consumer.Close()
}
