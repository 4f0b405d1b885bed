package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"order-management-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleOrders(t *testing.T) {
	now := time.Now()
	rows := []orderRow{
		{ID: 5, UserID: 1, Status: models.OrderStatusPending, CreationDate: now,
			LineID: sql.NullInt64{Int64: 10, Valid: true}, ItemID: sql.NullInt64{Int64: 3, Valid: true},
			Quantity: sql.NullInt64{Int64: 2, Valid: true}, ItemName: sql.NullString{String: "Laptop", Valid: true},
			ItemPrice: decimal.NullDecimal{Decimal: decimal.RequireFromString("1299.99"), Valid: true}},
		{ID: 5, UserID: 1, Status: models.OrderStatusPending, CreationDate: now,
			LineID: sql.NullInt64{Int64: 11, Valid: true}, ItemID: sql.NullInt64{Int64: 4, Valid: true},
			Quantity: sql.NullInt64{Int64: 1, Valid: true}},
		{ID: 6, UserID: 2, Status: models.OrderStatusShipped, CreationDate: now},
	}

	orders := assembleOrders(rows)

	require.Len(t, orders, 2)
	assert.Equal(t, int64(5), orders[0].ID)
	require.Len(t, orders[0].Lines, 2)
	assert.Equal(t, "Laptop", orders[0].Lines[0].Item.Name)
	assert.Equal(t, 2, orders[0].Lines[0].Quantity)
	assert.Nil(t, orders[0].Lines[1].Item, "deleted catalog item stays a line without details")
	assert.Equal(t, int64(4), orders[0].Lines[1].ItemID)
	assert.Empty(t, orders[1].Lines)
	assert.NotNil(t, orders[1].Lines)
}

func TestOrderFilterClause(t *testing.T) {
	where, args := orderFilterClause(models.OrderFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = orderFilterClause(models.OrderFilter{IDs: []int64{5, 7}})
	assert.Equal(t, " WHERE id IN (?)", where)
	assert.Equal(t, []interface{}{[]int64{5, 7}}, args)

	where, args = orderFilterClause(models.OrderFilter{Statuses: []models.OrderStatus{models.OrderStatusShipped}})
	assert.Equal(t, " WHERE status IN (?)", where)
	assert.Equal(t, []interface{}{[]string{"SHIPPED"}}, args)

	where, args = orderFilterClause(models.OrderFilter{
		IDs:      []int64{5, 7},
		Statuses: []models.OrderStatus{models.OrderStatusShipped},
	})
	assert.Equal(t, " WHERE id IN (?) AND status IN (?)", where)
	assert.Len(t, args, 2)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
}

func testStore(t *testing.T) *Store {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	s, err := NewStore(url)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	_, err = s.db.Exec("TRUNCATE order_items, orders, items RESTART IDENTITY")
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestItemNameUnique(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := &models.Item{Name: "Laptop", Price: decimal.RequireFromString("1299.99")}
	require.NoError(t, s.CreateItem(ctx, first))
	assert.NotZero(t, first.ID)

	err := s.CreateItem(ctx, &models.Item{Name: "Laptop", Price: decimal.RequireFromString("5")})
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))

	items, total, err := s.ListItems(ctx, "lap", models.PageRequest{Page: 0, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}

func TestCreateAndLoadOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	laptop := &models.Item{Name: "Laptop", Price: decimal.RequireFromString("1299.99")}
	mouse := &models.Item{Name: "Mouse", Price: decimal.RequireFromString("19.50")}
	require.NoError(t, s.CreateItem(ctx, laptop))
	require.NoError(t, s.CreateItem(ctx, mouse))

	order := &models.Order{
		UserID:       100,
		Status:       models.OrderStatusPending,
		CreationDate: time.Now().UTC().Truncate(time.Microsecond),
		Lines: []models.OrderLine{
			{ItemID: laptop.ID, Quantity: 2},
			{ItemID: mouse.ID, Quantity: 1},
		},
	}
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.NotZero(t, order.ID)

	loaded, err := s.GetOrderWithLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.Equal(t, "Laptop", loaded.Lines[0].Item.Name)
	assert.Equal(t, 2, loaded.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("2619.48").Equal(loaded.Total()))

	require.NoError(t, s.DeleteItem(ctx, mouse.ID))
	loaded, err = s.GetOrderWithLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.Nil(t, loaded.Lines[1].Item)

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped))
	require.NoError(t, s.DeleteOrder(ctx, order.ID))

	_, err = s.GetOrderWithLines(ctx, order.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteOrder(ctx, order.ID), models.ErrNotFound))
}

func TestListOrdersFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	statuses := []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusPending, models.OrderStatusPending, models.OrderStatusPending,
		models.OrderStatusPending, models.OrderStatusShipped, models.OrderStatusShipped,
	}
	for _, st := range statuses {
		o := &models.Order{UserID: 1, Status: st, CreationDate: time.Now().UTC()}
		require.NoError(t, s.CreateOrder(ctx, o))
	}

	orders, total, err := s.ListOrders(ctx, models.OrderFilter{
		IDs:      []int64{5, 7},
		Statuses: []models.OrderStatus{models.OrderStatusShipped},
	}, models.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(7), orders[0].ID)
}
