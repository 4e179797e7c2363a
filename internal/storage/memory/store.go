// Package memory is an in-process implementation of every repository in the
// service. Transactions are serialized by a single mutex and rolled back by
// restoring a snapshot, which gives the same all-or-nothing and lost-update
// guarantees as the Postgres row locks. It backs STORAGE_DRIVER=memory and the
// use case tests.
package memory

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	products      map[string]model.Product
	attributes    map[string]model.Attribute
	values        map[string]model.AttributeValue
	variants      map[string]model.Variant
	movements     []model.StockMovement
	orders        map[string]model.Order
	orderItems    map[string][]model.OrderItem
	notifications []model.StockNotification
}

func newState() *state {
	return &state{
		products:   make(map[string]model.Product),
		attributes: make(map[string]model.Attribute),
		values:     make(map[string]model.AttributeValue),
		variants:   make(map[string]model.Variant),
		orders:     make(map[string]model.Order),
		orderItems: make(map[string][]model.OrderItem),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.attributes {
		c.attributes[k] = v
	}
	for k, v := range st.values {
		c.values[k] = v
	}
	for k, v := range st.variants {
		c.variants[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	c.movements = append([]model.StockMovement(nil), st.movements...)
	c.notifications = append([]model.StockNotification(nil), st.notifications...)
	return c
}

func New() *Store {
	return &Store{data: newState()}
}

// WithinTx implements database.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	scope := &database.Scope{Owner: s}
	err := fn(database.WithScope(ctx, scope))
	if err != nil {
		s.data = snapshot
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	scope.RunHooks()
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	scope := database.ScopeFrom(ctx)
	return scope != nil && scope.Owner == s
}

// run gives fn exclusive access to the state, joining the caller's
// transaction when there is one.
func (s *Store) run(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// AddProduct seeds the product catalog, which this service does not own.
func (s *Store) AddProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[p.ID] = p
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

func (s *Store) Attributes() *AttributeRepository {
	return &AttributeRepository{s: s}
}

func (s *Store) Variants() *VariantRepository {
	return &VariantRepository{s: s}
}

func (s *Store) Inventory() *InventoryRepository {
	return &InventoryRepository{s: s}
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{s: s}
}

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{s: s}
}

func paginate(total, page, pageSize int) (int, int) {
	if pageSize <= 0 {
		return 0, total
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
