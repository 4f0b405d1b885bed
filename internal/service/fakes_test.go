package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"order-management-service/internal/models"
	"order-management-service/internal/userclient"

	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory OrderStore and ItemStore. Orders keep item ids
// only; lines are joined with the live catalog on read.
type memStore struct {
	mu         sync.Mutex
	items      map[int64]models.Item
	orders     map[int64]models.Order
	nextItem   int64
	nextOrder  int64
	nextLine   int64
	failCreate error
	lookups    int
}

func newMemStore() *memStore {
	return &memStore{
		items:  map[int64]models.Item{},
		orders: map[int64]models.Order{},
	}
}

func (m *memStore) CreateItem(_ context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.Name == item.Name {
			return fmt.Errorf("item with name %s: %w", item.Name, models.ErrAlreadyExists)
		}
	}
	m.nextItem++
	item.ID = m.nextItem
	m.items[item.ID] = *item
	return nil
}

func (m *memStore) GetItemByID(_ context.Context, id int64) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &it, nil
}

func (m *memStore) GetItemByName(_ context.Context, name string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.Name == name {
			found := it
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) GetItemsByNames(_ context.Context, names []string) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	out := []models.Item{}
	for _, it := range m.items {
		for _, n := range names {
			if it.Name == n {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (m *memStore) ListItems(_ context.Context, name string, page models.PageRequest) ([]models.Item, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []models.Item{}
	for _, it := range m.items {
		if strings.Contains(strings.ToLower(it.Name), strings.ToLower(name)) {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), int64(len(matched)), nil
}

func (m *memStore) UpdateItem(_ context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return models.ErrNotFound
	}
	m.items[item.ID] = *item
	return nil
}

func (m *memStore) DeleteItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.nextOrder++
	order.ID = m.nextOrder
	stored := *order
	stored.Lines = make([]models.OrderLine, len(order.Lines))
	for i := range order.Lines {
		m.nextLine++
		order.Lines[i].ID = m.nextLine
		order.Lines[i].OrderID = order.ID
		stored.Lines[i] = order.Lines[i]
		stored.Lines[i].Item = nil
	}
	m.orders[order.ID] = stored
	return nil
}

func (m *memStore) load(o models.Order) models.Order {
	lines := make([]models.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = l
		if it, ok := m.items[l.ItemID]; ok {
			item := it
			lines[i].Item = &item
		}
	}
	o.Lines = lines
	return o
}

func (m *memStore) GetOrderWithLines(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with id %d: %w", id, models.ErrNotFound)
	}
	loaded := m.load(o)
	return &loaded, nil
}

func (m *memStore) ListOrders(_ context.Context, filter models.OrderFilter, page models.PageRequest) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []models.Order{}
	for _, o := range m.orders {
		if len(filter.IDs) > 0 && !containsID(filter.IDs, o.ID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		matched = append(matched, m.load(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), int64(len(matched)), nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, id int64, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order with id %d: %w", id, models.ErrNotFound)
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("order with id %d: %w", id, models.ErrNotFound)
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *memStore) status(id int64) models.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func paginate[T any](all []T, page models.PageRequest) []T {
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsStatus(statuses []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// stubResolver answers from a fixed directory and falls back like the real
// client for anything it does not know.
type stubResolver struct {
	mu      sync.Mutex
	byEmail map[string]models.Identity
	calls   int
}

func newStubResolver(users ...models.Identity) *stubResolver {
	r := &stubResolver{byEmail: map[string]models.Identity{}}
	for _, u := range users {
		r.byEmail[u.Email] = u
	}
	return r
}

func (r *stubResolver) ResolveByEmail(_ context.Context, _, email string) userclient.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if u, ok := r.byEmail[email]; ok {
		return userclient.Resolution{Identity: u, Source: userclient.SourceUserService}
	}
	return userclient.Resolution{
		Identity: models.Identity{ID: userclient.FallbackUserID, Email: email, Name: "unknown", Surname: "unknown"},
		Source:   userclient.SourceFallback,
		Cause:    errors.New("user service unavailable"),
	}
}

func (r *stubResolver) ResolveByID(_ context.Context, _ string, id int64) userclient.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, u := range r.byEmail {
		if u.ID == id {
			return userclient.Resolution{Identity: u, Source: userclient.SourceUserService}
		}
	}
	return userclient.Resolution{
		Identity: models.Identity{ID: id, Email: "unknown@gmail.com", Name: "unknown", Surname: "unknown"},
		Source:   userclient.SourceFallback,
		Cause:    errors.New("user service unavailable"),
	}
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type memDedup struct {
	mu      sync.Mutex
	seen    map[string]time.Duration
	failGet error
}

func newMemDedup() *memDedup {
	return &memDedup{seen: map[string]time.Duration{}}
}

func (d *memDedup) IsPaymentProcessed(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failGet != nil {
		return false, d.failGet
	}
	_, ok := d.seen[key]
	return ok, nil
}

func (d *memDedup) MarkPaymentProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, existed := d.seen[key]
	d.seen[key] = ttl
	return !existed, nil
}

type memLocker struct {
	mu       sync.Mutex
	held     map[string]string
	failWith error
	released []string
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (l *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return "", false, l.failWith
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := fmt.Sprintf("tok-%d", len(l.released)+len(l.held)+1)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.released = append(l.released, key)
	}
	return nil
}
