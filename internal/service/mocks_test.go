package service

import (
	"context"
	"sync"
	"time"

	"merchstore/internal/domain"
	"merchstore/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes. They implement just enough behavior for the
// service layer: keyed storage, injectable failures, and call counting for
// the batched-read assertions.

var (
	errProductMissing = repository.ErrProductNotFound
	errOrderMissing   = repository.ErrOrderNotFound
	errItemMissing    = repository.ErrOrderItemNotFound
)

type memProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product

	findByIDsCalls int
	findByIDsErr   error
	decrementErr   map[uuid.UUID]error
	updateGallery  error
	probeResult    bool
	probeErr       error
	galleryWrites  int
}

func newMemProductRepo(products ...*domain.Product) *memProductRepo {
	repo := &memProductRepo{
		products:     make(map[uuid.UUID]*domain.Product),
		decrementErr: make(map[uuid.UUID]error),
		probeResult:  true,
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memProductRepo) Create(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) Update(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return errProductMissing
	}
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return nil, errProductMissing
	}
	clone := *product
	return &clone, nil
}

func (r *memProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByIDsCalls++
	if r.findByIDsErr != nil {
		return nil, r.findByIDsErr
	}
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			clone := *product
			out[id] = &clone
		}
	}
	return out, nil
}

func (r *memProductRepo) List(_ context.Context, _, _ int) ([]*domain.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		clone := *p
		out = append(out, &clone)
	}
	return out, len(out), nil
}

func (r *memProductRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.decrementErr[id]; ok {
		return 0, err
	}
	product, ok := r.products[id]
	if !ok {
		return 0, errProductMissing
	}
	product.Stock -= quantity
	if product.Stock < 0 {
		product.Stock = 0
	}
	return product.Stock, nil
}

func (r *memProductRepo) UpdateGallery(_ context.Context, id uuid.UUID, urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateGallery != nil {
		return r.updateGallery
	}
	product, ok := r.products[id]
	if !ok {
		return errProductMissing
	}
	product.GalleryImages = append([]string(nil), urls...)
	r.galleryWrites++
	return nil
}

func (r *memProductRepo) ProbeGalleryField(_ context.Context) (bool, error) {
	return r.probeResult, r.probeErr
}

func (r *memProductRepo) stock(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Stock
}

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	createErr error
	findErr   error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, errOrderMissing
	}
	clone := *order
	return &clone, nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Order{}
	for _, order := range r.orders {
		if order.UserID != nil && *order.UserID == userID {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return errOrderMissing
	}
	order.Status = status
	return nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type memOrderItemRepo struct {
	mu             sync.Mutex
	items          map[uuid.UUID]*domain.OrderItem
	createErrFor   map[uuid.UUID]error // keyed by product id
	markErrFor     map[uuid.UUID]error // keyed by item id
	listByIDsCalls int
}

func newMemOrderItemRepo() *memOrderItemRepo {
	return &memOrderItemRepo{
		items:        make(map[uuid.UUID]*domain.OrderItem),
		createErrFor: make(map[uuid.UUID]error),
		markErrFor:   make(map[uuid.UUID]error),
	}
}

func (r *memOrderItemRepo) Create(_ context.Context, item *domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.createErrFor[item.ProductID]; ok {
		return err
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *memOrderItemRepo) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.OrderItem{}
	for _, item := range r.items {
		if item.OrderID == orderID {
			clone := *item
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderItemRepo) ListByOrderIDs(_ context.Context, orderIDs []uuid.UUID) ([]*domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listByIDsCalls++
	wanted := make(map[uuid.UUID]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = struct{}{}
	}
	out := []*domain.OrderItem{}
	for _, item := range r.items {
		if _, ok := wanted[item.OrderID]; ok {
			clone := *item
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderItemRepo) ListPendingStock(_ context.Context, olderThan time.Duration, limit int) ([]*domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	out := []*domain.OrderItem{}
	for _, item := range r.items {
		if !item.StockApplied && item.CreatedAt.Before(cutoff) {
			clone := *item
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memOrderItemRepo) MarkStockApplied(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.markErrFor[id]; ok {
		return err
	}
	item, ok := r.items[id]
	if !ok {
		return errItemMissing
	}
	item.StockApplied = true
	return nil
}

func (r *memOrderItemRepo) itemsForOrder(orderID uuid.UUID) []*domain.OrderItem {
	out, _ := r.ListByOrderID(context.Background(), orderID)
	return out
}

// memKV is an in-memory cache.KV with injectable failures for the gallery
// degradation tests.
type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (k *memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.getErr != nil {
		return "", false, k.getErr
	}
	value, ok := k.data[key]
	return value, ok, nil
}

func (k *memKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.setErr != nil {
		return k.setErr
	}
	k.data[key] = value
	return nil
}

func (k *memKV) get(key string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	value, ok := k.data[key]
	return value, ok
}
