package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types, carried in the message headers
const (
	EventTypeOrderCreated   = "CREATE_ORDER"
	EventTypePaymentCreated = "CREATE_PAYMENT"
)

// Payment status tokens as sent by the payment service
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// OrderCreatedEvent is published after an order is committed
type OrderCreatedEvent struct {
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   LocalDateTime   `json:"createdAt"`
}

// PaymentEvent is consumed from the payment service
type PaymentEvent struct {
	PaymentID     string          `json:"paymentId"`
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Status        string          `json:"status"`
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
	Timestamp     LocalDateTime   `json:"timestamp"`
}

const localDateTimeLayout = "2006-01-02T15:04:05.999999"

// LocalDateTime is a zone-less timestamp, the format the JVM services on the
// other side of the topics read and write.
type LocalDateTime time.Time

// MarshalJSON writes the time without zone information
func (t LocalDateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(localDateTimeLayout))
}

// UnmarshalJSON accepts zone-less timestamps as well as RFC 3339
func (t *LocalDateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	for _, layout := range []string{localDateTimeLayout, time.RFC3339Nano} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = LocalDateTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", raw)
}

// Time returns the value as time.Time
func (t LocalDateTime) Time() time.Time {
	return time.Time(t)
}
