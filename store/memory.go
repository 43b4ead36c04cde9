package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-freshmart/models"
)

// MemoryOrderStore is an in-process OrderStore with the same conditional
// transition semantics as the Mongo implementation. It backs the test suite
// and a no-Mongo development mode.
type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (s *MemoryOrderStore) Insert(_ context.Context, order *models.Order) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = time.Now().UTC()
	cp := *order
	s.orders[order.ID] = &cp
	return order, nil
}

func (s *MemoryOrderStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (s *MemoryOrderStore) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	sortByCreatedAt(orders)
	return orders, nil
}

func (s *MemoryOrderStore) FindAll(_ context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, *o)
	}
	sortByCreatedAt(orders)
	return orders, nil
}

func (s *MemoryOrderStore) MarkPaid(_ context.Context, id primitive.ObjectID, result *models.PaymentResult, paidAt time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if order.IsPaid || order.IsCanceled {
		return nil, ErrConflict
	}
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = result
	cp := *order
	return &cp, nil
}

func (s *MemoryOrderStore) MarkDelivered(_ context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !order.IsPaid || order.IsDelivered {
		return nil, ErrConflict
	}
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt
	cp := *order
	return &cp, nil
}

func (s *MemoryOrderStore) MarkCanceled(_ context.Context, id primitive.ObjectID, canceledAt time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if order.IsPaid || order.IsDelivered || order.IsCanceled {
		return nil, ErrConflict
	}
	order.IsCanceled = true
	order.CanceledAt = &canceledAt
	cp := *order
	return &cp, nil
}

func sortByCreatedAt(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// MemoryProductStore mirrors the Mongo product store's guarded decrement.
type MemoryProductStore struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: make(map[primitive.ObjectID]*models.Product)}
}

// Delete removes a product, mirroring a catalog deletion.
func (s *MemoryProductStore) Delete(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// Put seeds or replaces a product.
func (s *MemoryProductStore) Put(product *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	cp := *product
	s.products[product.ID] = &cp
}

func (s *MemoryProductStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *product
	return &cp, nil
}

func (s *MemoryProductStore) AdjustStock(_ context.Context, id primitive.ObjectID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	if delta < 0 && product.CountInStock+delta < 0 {
		return ErrInsufficientStock
	}
	product.CountInStock += delta
	return nil
}
