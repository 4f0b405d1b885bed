package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"order-management-service/internal/auth"
	"order-management-service/internal/models"
	"order-management-service/internal/util"

	"go.uber.org/zap"
)

// OrderServiceConfig holds the tunables of OrderService
type OrderServiceConfig struct {
	Paging          PageLimits
	PaymentDedupTTL time.Duration
	PublishTimeout  time.Duration
}

// OrderService handles order business logic
type OrderService struct {
	store      OrderStore
	catalog    ItemLookup
	identities IdentityResolver
	publisher  OrderEventPublisher
	dedup      PaymentDeduplicator
	cfg        OrderServiceConfig
	logger     *zap.Logger
}

// NewOrderService creates a new order service. dedup may be nil, in which
// case redelivered payment events are simply applied again.
func NewOrderService(
	store OrderStore,
	catalog ItemLookup,
	identities IdentityResolver,
	publisher OrderEventPublisher,
	dedup PaymentDeduplicator,
	cfg OrderServiceConfig,
) *OrderService {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &OrderService{
		store:      store,
		catalog:    catalog,
		identities: identities,
		publisher:  publisher,
		dedup:      dedup,
		cfg:        cfg,
		logger:     util.GetLogger(),
	}
}

// LineRequest is one requested order position
type LineRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// CreateOrder places an order on behalf of the user owning email. The order
// and all of its lines are committed together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, caller auth.Caller, email string, lines []LineRequest) (*models.OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()
	logger := util.WithTrace(ctx, s.logger)

	if err := validateLines(email, lines); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	resolved := s.identities.ResolveByEmail(ctx, caller.Credential, email)
	if !auth.CanAccess(caller, resolved.Identity) {
		util.OrdersFailedTotal.WithLabelValues("access_denied").Inc()
		logger.Warn("Order creation denied",
			zap.String("caller", caller.Email),
			zap.String("email", email))
		return nil, fmt.Errorf("cannot create orders for %s: %w", email, models.ErrAccessDenied)
	}

	items, err := s.lookupItems(ctx, lines)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:       resolved.Identity.ID,
		Status:       models.OrderStatusPending,
		CreationDate: time.Now().UTC(),
		Lines:        make([]models.OrderLine, 0, len(lines)),
	}
	for _, l := range lines {
		item := items[strings.TrimSpace(l.Name)]
		order.Lines = append(order.Lines, models.OrderLine{
			ItemID:   item.ID,
			Quantity: l.Quantity,
			Item:     &item,
		})
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		logger.Error("Failed to persist order", zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int("lines", len(order.Lines)),
		zap.Bool("fallback_identity", resolved.Fallback()))

	s.publishOrderCreated(ctx, order)

	details := models.NewOrderDetails(order, resolved.Identity)
	return &details, nil
}

func validateLines(email string, lines []LineRequest) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required: %w", models.ErrInvalidArgument)
	}
	if len(lines) == 0 {
		return fmt.Errorf("order must contain at least one item: %w", models.ErrInvalidArgument)
	}
	for i, l := range lines {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("line %d: item name is required: %w", i, models.ErrInvalidArgument)
		}
		if l.Quantity < 1 {
			return fmt.Errorf("line %d: quantity must be at least 1: %w", i, models.ErrInvalidArgument)
		}
	}
	return nil
}

// lookupItems fetches every named item in one query. The first name, in
// request order, that is not in the catalog fails the whole request.
func (s *OrderService) lookupItems(ctx context.Context, lines []LineRequest) (map[string]models.Item, error) {
	names := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		name := strings.TrimSpace(l.Name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	found, err := s.catalog.GetItemsByNames(ctx, names)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to look up items: %w", err)
	}

	byName := make(map[string]models.Item, len(found))
	for _, item := range found {
		byName[item.Name] = item
	}
	for _, name := range names {
		if _, ok := byName[name]; !ok {
			util.OrdersFailedTotal.WithLabelValues("item_not_found").Inc()
			return nil, fmt.Errorf("item with name %s: %w", name, models.ErrNotFound)
		}
	}
	return byName, nil
}

// publishOrderCreated notifies downstream consumers. The order is already
// committed, so failures are only logged.
func (s *OrderService) publishOrderCreated(ctx context.Context, order *models.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PublishTimeout)
	defer cancel()

	event := &models.OrderCreatedEvent{
		OrderID:     strconv.FormatInt(order.ID, 10),
		UserID:      strconv.FormatInt(order.UserID, 10),
		TotalAmount: order.Total(),
		CreatedAt:   models.LocalDateTime(order.CreationDate),
	}

	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		util.OrderEventsPublishedTotal.WithLabelValues("failed").Inc()
		util.WithTrace(ctx, s.logger).Error("Failed to publish OrderCreated event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return
	}
	util.OrderEventsPublishedTotal.WithLabelValues("published").Inc()
}

// GetOrder returns an order if the caller may see it
func (s *OrderService) GetOrder(ctx context.Context, caller auth.Caller, id int64) (*models.OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderWithLines(ctx, id)
	if err != nil {
		return nil, err
	}

	resolved := s.identities.ResolveByID(ctx, caller.Credential, order.UserID)
	if !auth.CanAccess(caller, resolved.Identity) {
		util.WithTrace(ctx, s.logger).Warn("Order access denied",
			zap.String("caller", caller.Email),
			zap.Int64("order_id", id))
		return nil, models.ErrAccessDenied
	}

	details := models.NewOrderDetails(order, resolved.Identity)
	return &details, nil
}

// ListOrders returns one page of orders matching filter, each with its owner
func (s *OrderService) ListOrders(ctx context.Context, caller auth.Caller, page, size int, filter models.OrderFilter) (models.Page[models.OrderDetails], error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	if !caller.IsAdmin() {
		return models.Page[models.OrderDetails]{}, fmt.Errorf("listing orders requires %s: %w", auth.RoleAdmin, models.ErrAccessDenied)
	}

	req := s.cfg.Paging.Normalize(page, size)
	orders, total, err := s.store.ListOrders(ctx, filter, req)
	if err != nil {
		return models.Page[models.OrderDetails]{}, fmt.Errorf("failed to list orders: %w", err)
	}

	content := make([]models.OrderDetails, 0, len(orders))
	for i := range orders {
		resolved := s.identities.ResolveByID(ctx, caller.Credential, orders[i].UserID)
		content = append(content, models.NewOrderDetails(&orders[i], resolved.Identity))
	}

	return models.NewPage(content, req.Page, req.Size, total), nil
}

// UpdateOrder overwrites the status of an order. Any known status may
// replace any other.
func (s *OrderService) UpdateOrder(ctx context.Context, caller auth.Caller, id int64, rawStatus string) (*models.OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("updating orders requires %s: %w", auth.RoleAdmin, models.ErrAccessDenied)
	}

	status, ok := models.ParseOrderStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("unknown order status %q: %w", rawStatus, models.ErrInvalidArgument)
	}

	order, err := s.store.GetOrderWithLines(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}
	previous := order.Status
	order.Status = status

	util.OrderStatusUpdatesTotal.WithLabelValues("admin", string(status)).Inc()
	util.WithTrace(ctx, s.logger).Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	resolved := s.identities.ResolveByID(ctx, caller.Credential, order.UserID)
	details := models.NewOrderDetails(order, resolved.Identity)
	return &details, nil
}

// DeleteOrder removes an order together with its lines
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	if err := s.store.DeleteOrder(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			util.WithTrace(ctx, s.logger).Error("Failed to delete order",
				zap.Int64("order_id", id),
				zap.Error(err))
		}
		return err
	}

	util.OrdersDeletedTotal.Inc()
	util.WithTrace(ctx, s.logger).Info("Order deleted", zap.Int64("order_id", id))
	return nil
}
