package service

import (
	"context"
	"time"

	"order-management-service/internal/models"
	"order-management-service/internal/userclient"
)

// OrderStore persists order aggregates
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderWithLines(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter, page models.PageRequest) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error
	DeleteOrder(ctx context.Context, id int64) error
}

// ItemLookup is the part of the catalog the order flow reads
type ItemLookup interface {
	GetItemsByNames(ctx context.Context, names []string) ([]models.Item, error)
}

// ItemStore persists catalog items
type ItemStore interface {
	ItemLookup
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemByName(ctx context.Context, name string) (*models.Item, error)
	ListItems(ctx context.Context, name string, page models.PageRequest) ([]models.Item, int64, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
}

// IdentityResolver looks up order owners in the user service
type IdentityResolver interface {
	ResolveByEmail(ctx context.Context, credential, email string) userclient.Resolution
	ResolveByID(ctx context.Context, credential string, id int64) userclient.Resolution
}

// OrderEventPublisher announces committed orders
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
}

// PaymentDeduplicator remembers which payment events were already applied
type PaymentDeduplicator interface {
	IsPaymentProcessed(ctx context.Context, key string) (bool, error)
	MarkPaymentProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NameLocker serializes catalog writes that claim the same item name
type NameLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// PageLimits bounds paged listings
type PageLimits struct {
	Default int
	Max     int
}

// Normalize clamps a requested page into a valid PageRequest
func (l PageLimits) Normalize(page, size int) models.PageRequest {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = l.Default
	}
	if size < 1 {
		size = 1
	}
	if l.Max > 0 && size > l.Max {
		size = l.Max
	}
	return models.PageRequest{Page: page, Size: size}
}
