package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"order-management-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateItem inserts a catalog item. The unique constraint on name backs
// the service-level check.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	err := s.db.GetContext(ctx, &item.ID,
		"INSERT INTO items (name, price) VALUES ($1, $2) RETURNING id",
		item.Name, item.Price)
	if isUniqueViolation(err) {
		return fmt.Errorf("item with name %s: %w", item.Name, models.ErrAlreadyExists)
	}
	return err
}

// GetItemByID retrieves an item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT id, name, price FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item with id %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemByName retrieves an item by its exact name
func (s *Store) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT id, name, price FROM items WHERE name = $1", name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item with name %s: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByNames retrieves the items matching any of names. Unknown names
// are simply absent from the result.
func (s *Store) GetItemsByNames(ctx context.Context, names []string) ([]models.Item, error) {
	if len(names) == 0 {
		return []models.Item{}, nil
	}

	query, args, err := sqlx.In("SELECT id, name, price FROM items WHERE name IN (?)", names)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// ListItems returns one page of items, optionally filtered by a
// case-insensitive name fragment, plus the total number of matches
func (s *Store) ListItems(ctx context.Context, name string, page models.PageRequest) ([]models.Item, int64, error) {
	where := ""
	args := []interface{}{}
	if name = strings.TrimSpace(name); name != "" {
		where = " WHERE name ILIKE ?"
		args = append(args, "%"+escapeLike(name)+"%")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM items"+where), args...); err != nil {
		return nil, 0, err
	}

	query := s.db.Rebind("SELECT id, name, price FROM items" + where + " ORDER BY id LIMIT ? OFFSET ?")
	args = append(args, page.Size, page.Offset())

	items := []models.Item{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateItem overwrites name and price of an existing item
func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET name = $1, price = $2 WHERE id = $3",
		item.Name, item.Price, item.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("item with name %s: %w", item.Name, models.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("item with id %d", item.ID))
}

// DeleteItem removes an item. Order lines that reference it are kept.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("item with id %d", id))
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
