package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderDetails is an order as returned to callers, with its owner embedded
type OrderDetails struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"userId"`
	Status       OrderStatus   `json:"status"`
	CreationDate time.Time     `json:"creationDate"`
	Items        []LineDetails `json:"items"`
	User         Identity      `json:"user"`
}

// LineDetails shows a line with the name and price currently in the catalog.
// Name and Price are empty when the item no longer exists.
type LineDetails struct {
	ID       int64            `json:"id"`
	ItemID   int64            `json:"itemId"`
	Name     string           `json:"name,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity int              `json:"quantity"`
}

// NewOrderDetails attaches the resolved owner to an order
func NewOrderDetails(order *Order, user Identity) OrderDetails {
	lines := make([]LineDetails, 0, len(order.Lines))
	for _, l := range order.Lines {
		ld := LineDetails{
			ID:       l.ID,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
		}
		if l.Item != nil {
			price := l.Item.Price
			ld.Name = l.Item.Name
			ld.Price = &price
		}
		lines = append(lines, ld)
	}

	return OrderDetails{
		ID:           order.ID,
		UserID:       order.UserID,
		Status:       order.Status,
		CreationDate: order.CreationDate,
		Items:        lines,
		User:         user,
	}
}
