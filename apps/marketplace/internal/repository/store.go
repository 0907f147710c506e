package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/apps/marketplace/internal/model"
)

var (
	// ErrStorageUnavailable is returned when the order storage cannot be read or written.
	ErrStorageUnavailable = errors.New("order storage unavailable")

	// ErrDuplicateOrderID is returned when an order with the same id is already stored.
	ErrDuplicateOrderID = errors.New("duplicate order id")
)

// OrderStore persists orders in creation order.
//
// EnsureLoaded is idempotent and cheap after the first successful call. Every other
// method calls it first, so callers never have to.
type OrderStore interface {
	EnsureLoaded(ctx context.Context) error
	Append(ctx context.Context, order model.Order) (model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	ListBySeller(ctx context.Context, address string) ([]model.Order, error)
	// GetOrderByID returns nil without error when no order has the id.
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorageUnavailable, op, err)
}

func filterBySeller(orders []model.Order, address string) []model.Order {
	matched := make([]model.Order, 0)
	for _, o := range orders {
		if o.SoldBy(address) {
			matched = append(matched, o)
		}
	}
	return matched
}
