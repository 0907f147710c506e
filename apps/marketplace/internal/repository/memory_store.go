package repository

import (
	"context"
	"fmt"
	"sync"

	"marketplace/apps/marketplace/internal/model"
)

// MemoryStore is a non-durable OrderStore.
type MemoryStore struct {
	mu     sync.RWMutex
	orders []model.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: []model.Order{}}
}

func (s *MemoryStore) EnsureLoaded(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, order model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.ID == order.ID {
			return model.Order{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.ID)
		}
	}
	s.orders = append(s.orders, order)
	return order, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

func (s *MemoryStore) ListBySeller(ctx context.Context, address string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBySeller(s.orders, address), nil
}

func (s *MemoryStore) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ID == id {
			found := o
			return &found, nil
		}
	}
	return nil, nil
}
