package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"order-management-service/internal/models"
	"order-management-service/internal/util"

	"go.uber.org/zap"
)

// OrderStatusForPayment maps a payment status token to the order status it
// implies. Matching ignores case.
func OrderStatusForPayment(token string) (models.OrderStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case models.PaymentStatusSuccess:
		return models.OrderStatusShipped, true
	case models.PaymentStatusFailed:
		return models.OrderStatusCancelled, true
	case models.PaymentStatusPending:
		return models.OrderStatusPending, true
	}
	return "", false
}

// ApplyPaymentStatus moves an order to the status implied by a payment event.
// It is called by the payment consumer and bypasses identity and access
// checks. Events that cannot be applied (unknown order, unknown status,
// already applied) are logged and dropped; only infrastructure errors are
// returned.
func (s *OrderService) ApplyPaymentStatus(ctx context.Context, event *models.PaymentEvent) error {
	ctx, span := util.StartSpan(ctx, "OrderService.ApplyPaymentStatus")
	defer span.End()
	logger := util.WithTrace(ctx, s.logger).With(
		zap.String("payment_id", event.PaymentID),
		zap.String("order_id", event.OrderID),
		zap.String("payment_status", event.Status))

	status, ok := OrderStatusForPayment(event.Status)
	if !ok {
		util.PaymentEventsTotal.WithLabelValues("unknown_status").Inc()
		logger.Warn("Dropping payment event with unknown status")
		return nil
	}

	orderID, err := strconv.ParseInt(strings.TrimSpace(event.OrderID), 10, 64)
	if err != nil {
		util.PaymentEventsTotal.WithLabelValues("malformed").Inc()
		logger.Warn("Dropping payment event with malformed order id", zap.Error(err))
		return nil
	}

	dedupKey := paymentDedupKey(event)
	if s.dedup != nil && dedupKey != "" {
		done, err := s.dedup.IsPaymentProcessed(ctx, dedupKey)
		if err != nil {
			logger.Warn("Payment dedup check failed, applying anyway", zap.Error(err))
		} else if done {
			util.PaymentEventsTotal.WithLabelValues("duplicate").Inc()
			logger.Debug("Skipping already applied payment event")
			return nil
		}
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			util.PaymentEventsTotal.WithLabelValues("order_missing").Inc()
			logger.Warn("Order not found for payment event")
			return nil
		}
		util.PaymentEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to apply payment status to order %d: %w", orderID, err)
	}

	if s.dedup != nil && dedupKey != "" {
		if _, err := s.dedup.MarkPaymentProcessed(ctx, dedupKey, s.cfg.PaymentDedupTTL); err != nil {
			logger.Warn("Failed to mark payment event as processed", zap.Error(err))
		}
	}

	util.PaymentEventsTotal.WithLabelValues("applied").Inc()
	util.OrderStatusUpdatesTotal.WithLabelValues("payment", string(status)).Inc()
	logger.Info("Order status updated from payment", zap.String("status", string(status)))
	return nil
}

func paymentDedupKey(event *models.PaymentEvent) string {
	if strings.TrimSpace(event.PaymentID) == "" {
		return ""
	}
	return strings.TrimSpace(event.PaymentID) + ":" + strings.ToUpper(strings.TrimSpace(event.Status))
}
