// Package testutil provides in-memory fakes for the store, catalog, cart,
// gateway and dispatcher seams used across package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/store"
)

// MemoryOrderStore keeps orders in a map and enforces the same uniqueness
// as the Mongo indexes: orderId always, gateway order id when set.
type MemoryOrderStore struct {
	mu       sync.Mutex
	orders   map[string]models.Order
	order    []string
	gateways map[string]string

	InsertErr error
	// DuplicateOnce makes the next Insert report a duplicate key.
	DuplicateOnce bool
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: map[string]models.Order{}, gateways: map[string]string{}}
}

func (s *MemoryOrderStore) Insert(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InsertErr != nil {
		return s.InsertErr
	}
	if s.DuplicateOnce {
		s.DuplicateOnce = false
		return fmt.Errorf("insert order %s: %w", order.OrderID, store.ErrDuplicate)
	}
	if _, exists := s.orders[order.OrderID]; exists {
		return fmt.Errorf("insert order %s: %w", order.OrderID, store.ErrDuplicate)
	}
	if order.GatewayOrderID != "" {
		if _, exists := s.gateways[order.GatewayOrderID]; exists {
			return fmt.Errorf("insert order %s: %w", order.OrderID, store.ErrPaymentRecorded)
		}
		s.gateways[order.GatewayOrderID] = order.OrderID
	}
	order.ID = primitive.NewObjectID()
	s.orders[order.OrderID] = *order
	s.order = append(s.order, order.OrderID)
	return nil
}

func (s *MemoryOrderStore) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

func (s *MemoryOrderStore) UpdateStatus(ctx context.Context, orderID string, orderStatus, paymentStatus *string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if orderStatus != nil {
		order.OrderStatus = *orderStatus
	}
	if paymentStatus != nil {
		order.PaymentStatus = *paymentStatus
	}
	s.orders[orderID] = order
	return &order, nil
}

func (s *MemoryOrderStore) List(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Order, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		o := s.orders[s.order[i]]
		if f.OrderStatus != "" && o.OrderStatus != f.OrderStatus {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.OrderType != "" && o.OrderType != f.OrderType {
			continue
		}
		matched = append(matched, o)
	}

	total := int64(len(matched))
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Len returns how many orders were stored.
func (s *MemoryOrderStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// All returns stored orders in insertion order.
func (s *MemoryOrderStore) All() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.orders[id])
	}
	return out
}

// MemoryCatalog is a product lookup keyed by hex id.
type MemoryCatalog struct {
	mu       sync.Mutex
	products map[string]models.Product

	// Err, when set, is returned by FindByID.
	Err error
}

func NewMemoryCatalog(products ...models.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: map[string]models.Product{}}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// Put stores p, assigning an id when it has none, and returns the hex id.
func (c *MemoryCatalog) Put(p models.Product) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Decorate()
	c.products[p.ID.Hex()] = p
	return p.ID.Hex()
}

func (c *MemoryCatalog) FindByID(ctx context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	p, ok := c.products[id]
	if !ok || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (c *MemoryCatalog) List(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Product, 0)
	for _, p := range c.products {
		if p.IsDeleted || (!f.IncludeInactive && !p.IsActive) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (c *MemoryCatalog) Create(ctx context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.products {
		if !existing.IsDeleted && existing.Code == p.Code {
			return fmt.Errorf("insert product %s: %w", p.Code, store.ErrDuplicate)
		}
	}
	p.ID = primitive.NewObjectID()
	p.Decorate()
	c.products[p.ID.Hex()] = *p
	return nil
}

func (c *MemoryCatalog) Update(ctx context.Context, id string, u store.ProductUpdate) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Code != nil {
		p.Code = *u.Code
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.SaleEnabled != nil {
		p.SaleEnabled = *u.SaleEnabled
	}
	if u.SalePrice != nil {
		p.SalePrice = *u.SalePrice
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Sizes != nil {
		p.Sizes = models.StringList(*u.Sizes)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	p.Decorate()
	c.products[id] = p
	return &p, nil
}

func (c *MemoryCatalog) SoftDelete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok || p.IsDeleted {
		return store.ErrNotFound
	}
	p.IsDeleted = true
	p.IsActive = false
	c.products[id] = p
	return nil
}

// RecordingDispatcher captures every dispatched notification.
type RecordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (d *RecordingDispatcher) Dispatch(ctx context.Context, n notify.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *RecordingDispatcher) Sent() []notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Notification(nil), d.sent...)
}

// Count returns how many notifications of kind were dispatched.
func (d *RecordingDispatcher) Count(kind notify.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// FakeGateway hands out sequential gateway order ids.
type FakeGateway struct {
	mu       sync.Mutex
	Requests []payment.OrderRequest
	Err      error
}

func (g *FakeGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	return &payment.GatewayOrder{
		ID:          fmt.Sprintf("order_test%04d", len(g.Requests)),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
	}, nil
}

// FakeCart records cleared sessions.
type FakeCart struct {
	mu      sync.Mutex
	Cleared []string
	Err     error
}

func (c *FakeCart) Clear(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cleared = append(c.Cleared, sessionID)
	return c.Err
}
