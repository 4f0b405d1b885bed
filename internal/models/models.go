package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a catalog entry
type Item struct {
	ID    int64           `db:"id" json:"id"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the known order statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ParseOrderStatus parses a status name, ignoring case and surrounding spaces
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Order is the aggregate root. Lines are always loaded and persisted with it.
type Order struct {
	ID           int64       `db:"id" json:"id"`
	UserID       int64       `db:"user_id" json:"userId"`
	Status       OrderStatus `db:"status" json:"status"`
	CreationDate time.Time   `db:"creation_date" json:"creationDate"`
	Lines        []OrderLine `db:"-" json:"items"`
}

// Total sums price x quantity over lines whose item is still in the catalog
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// OrderLine is a single position of an order. Item holds the live catalog
// entry and is nil when the item was removed after the order was placed.
type OrderLine struct {
	ID       int64 `db:"id" json:"id"`
	OrderID  int64 `db:"order_id" json:"-"`
	ItemID   int64 `db:"item_id" json:"itemId"`
	Quantity int   `db:"quantity" json:"quantity"`
	Item     *Item `db:"-" json:"-"`
}

// Subtotal returns price x quantity, or zero when the item is gone
func (l OrderLine) Subtotal() decimal.Decimal {
	if l.Item == nil {
		return decimal.Zero
	}
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Identity is a user record owned by the external user service.
// It is never persisted by this service.
type Identity struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	BirthDate string `json:"birthDate,omitempty"`
	Email     string `json:"email"`
}

// Page is one slice of a paged listing
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage builds a page and derives the page count from total and size
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// PageRequest is a zero-based page index plus page size
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// OrderFilter narrows an order listing. Empty slices mean "no filter".
type OrderFilter struct {
	IDs      []int64
	Statuses []OrderStatus
}
