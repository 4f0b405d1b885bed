package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"order-management-service/internal/models"
	"order-management-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	minItemNameLength = 3
	maxItemNameLength = 32
)

var minItemPrice = decimal.RequireFromString("0.01")

// ItemService manages the item catalog
type ItemService struct {
	store   ItemStore
	locker  NameLocker
	lockTTL time.Duration
	paging  PageLimits
	logger  *zap.Logger
}

// NewItemService creates a new item service. locker may be nil; the unique
// constraint in the store still rejects duplicates.
func NewItemService(store ItemStore, locker NameLocker, lockTTL time.Duration, paging PageLimits) *ItemService {
	return &ItemService{
		store:   store,
		locker:  locker,
		lockTTL: lockTTL,
		paging:  paging,
		logger:  util.GetLogger(),
	}
}

// ItemPatch carries the fields of a partial item update. Nil fields are
// left unchanged.
type ItemPatch struct {
	Name  *string
	Price *decimal.Decimal
}

// CreateItem adds an item to the catalog
func (s *ItemService) CreateItem(ctx context.Context, name string, price decimal.Decimal) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.CreateItem")
	defer span.End()

	name, err := normalizeItemName(name)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	release, err := s.lockName(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	item := &models.Item{Name: name, Price: price}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	util.ItemsMutationsTotal.WithLabelValues("create").Inc()
	util.WithTrace(ctx, s.logger).Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.String("name", item.Name))
	return item, nil
}

// ListItems returns one page of items whose name contains filter, ignoring case
func (s *ItemService) ListItems(ctx context.Context, filter string, page, size int) (models.Page[models.Item], error) {
	ctx, span := util.StartSpan(ctx, "ItemService.ListItems")
	defer span.End()

	req := s.paging.Normalize(page, size)
	items, total, err := s.store.ListItems(ctx, filter, req)
	if err != nil {
		return models.Page[models.Item]{}, fmt.Errorf("failed to list items: %w", err)
	}
	return models.NewPage(items, req.Page, req.Size, total), nil
}

// GetItem returns a single item
func (s *ItemService) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return s.store.GetItemByID(ctx, id)
}

// UpdateItem applies a partial update. The name is only checked for
// uniqueness when it actually changes.
func (s *ItemService) UpdateItem(ctx context.Context, id int64, patch ItemPatch) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.UpdateItem")
	defer span.End()

	item, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
		item.Price = *patch.Price
	}

	if patch.Name != nil {
		name, err := normalizeItemName(*patch.Name)
		if err != nil {
			return nil, err
		}
		if name != item.Name {
			release, err := s.lockName(ctx, name)
			if err != nil {
				return nil, err
			}
			defer release()

			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, err
			}
			item.Name = name
		}
	}

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	util.ItemsMutationsTotal.WithLabelValues("update").Inc()
	util.WithTrace(ctx, s.logger).Info("Item updated", zap.Int64("item_id", item.ID))
	return item, nil
}

// DeleteItem removes an item. Orders that reference it keep their lines.
func (s *ItemService) DeleteItem(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ItemService.DeleteItem")
	defer span.End()

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}

	util.ItemsMutationsTotal.WithLabelValues("delete").Inc()
	util.WithTrace(ctx, s.logger).Info("Item deleted", zap.Int64("item_id", id))
	return nil
}

func (s *ItemService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.store.GetItemByName(ctx, name)
	if err == nil {
		return fmt.Errorf("item with name %s: %w", name, models.ErrAlreadyExists)
	}
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

// lockName claims name for the duration of a write. Lock infrastructure
// failures are tolerated, a lock held by another writer is not.
func (s *ItemService) lockName(ctx context.Context, name string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := "catalog:item-name:" + strings.ToLower(name)
	token, ok, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		util.WithTrace(ctx, s.logger).Warn("Catalog lock unavailable, relying on unique constraint",
			zap.String("name", name),
			zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, fmt.Errorf("item with name %s is being written concurrently: %w", name, models.ErrAlreadyExists)
	}

	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Warn("Failed to release catalog lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func normalizeItemName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < minItemNameLength || n > maxItemNameLength {
		return "", fmt.Errorf("item name must be between %d and %d characters: %w",
			minItemNameLength, maxItemNameLength, models.ErrInvalidArgument)
	}
	return name, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.LessThan(minItemPrice) {
		return fmt.Errorf("item price must be at least %s: %w", minItemPrice, models.ErrInvalidArgument)
	}
	return nil
}
