package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"order-management-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// CreateOrder persists the order header and all of its lines in one
// transaction. On success the generated ids are set on order and its lines.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &order.ID,
		"INSERT INTO orders (user_id, status, creation_date) VALUES ($1, $2, $3) RETURNING id",
		order.UserID, order.Status, order.CreationDate)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID

		err = tx.GetContext(ctx, &line.ID,
			"INSERT INTO order_items (order_id, item_id, quantity) VALUES ($1, $2, $3) RETURNING id",
			line.OrderID, line.ItemID, line.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// orderRow is one row of the order/line/item join
type orderRow struct {
	ID           int64               `db:"id"`
	UserID       int64               `db:"user_id"`
	Status       models.OrderStatus  `db:"status"`
	CreationDate time.Time           `db:"creation_date"`
	LineID       sql.NullInt64       `db:"line_id"`
	ItemID       sql.NullInt64       `db:"item_id"`
	Quantity     sql.NullInt64       `db:"quantity"`
	ItemName     sql.NullString      `db:"item_name"`
	ItemPrice    decimal.NullDecimal `db:"item_price"`
}

const orderWithLinesQuery = `
	SELECT o.id, o.user_id, o.status, o.creation_date,
	       oi.id AS line_id, oi.item_id, oi.quantity,
	       i.name AS item_name, i.price AS item_price
	FROM orders o
	LEFT JOIN order_items oi ON oi.order_id = o.id
	LEFT JOIN items i ON i.id = oi.item_id`

// GetOrderWithLines loads an order together with its lines and the current
// catalog entry of every line, in a single query
func (s *Store) GetOrderWithLines(ctx context.Context, id int64) (*models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, orderWithLinesQuery+" WHERE o.id = $1 ORDER BY oi.id", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("order with id %d: %w", id, models.ErrNotFound)
	}

	orders := assembleOrders(rows)
	return &orders[0], nil
}

// ListOrders returns one page of orders matching filter, each with its lines,
// plus the total number of matches. The page of headers is selected first,
// then all their lines are loaded in one batch.
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter, page models.PageRequest) ([]models.Order, int64, error) {
	where, args := orderFilterClause(filter)

	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*) FROM orders"+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	idQuery, idArgs, err := sqlx.In("SELECT id FROM orders"+where+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(idQuery), idArgs...); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []models.Order{}, total, nil
	}

	query, queryArgs, err := sqlx.In(orderWithLinesQuery+" WHERE o.id IN (?) ORDER BY o.id, oi.id", ids)
	if err != nil {
		return nil, 0, err
	}
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), queryArgs...); err != nil {
		return nil, 0, err
	}

	return assembleOrders(rows), total, nil
}

// UpdateOrderStatus overwrites the status of an existing order
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("order with id %d", id))
}

// DeleteOrder removes an order and all of its lines
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if err := expectAffected(res, fmt.Sprintf("order with id %d", id)); err != nil {
		return err
	}

	return tx.Commit()
}

func orderFilterClause(filter models.OrderFilter) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	if len(filter.IDs) > 0 {
		conds = append(conds, "id IN (?)")
		args = append(args, filter.IDs)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		conds = append(conds, "status IN (?)")
		args = append(args, statuses)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// assembleOrders folds joined rows, ordered by order id, into aggregates
func assembleOrders(rows []orderRow) []models.Order {
	orders := []models.Order{}
	for _, r := range rows {
		if len(orders) == 0 || orders[len(orders)-1].ID != r.ID {
			orders = append(orders, models.Order{
				ID:           r.ID,
				UserID:       r.UserID,
				Status:       r.Status,
				CreationDate: r.CreationDate,
				Lines:        []models.OrderLine{},
			})
		}
		if !r.LineID.Valid {
			continue
		}

		o := &orders[len(orders)-1]
		line := models.OrderLine{
			ID:       r.LineID.Int64,
			OrderID:  r.ID,
			ItemID:   r.ItemID.Int64,
			Quantity: int(r.Quantity.Int64),
		}
		if r.ItemName.Valid && r.ItemPrice.Valid {
			line.Item = &models.Item{
				ID:    r.ItemID.Int64,
				Name:  r.ItemName.String,
				Price: r.ItemPrice.Decimal,
			}
		}
		o.Lines = append(o.Lines, line)
	}
	return orders
}
