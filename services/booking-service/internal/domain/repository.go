package domain

import (
	"context"
	"time"
)

type OrderRepository interface {
	// WithTx runs fn inside a single transaction; nested calls reuse the
	// surrounding transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, order *Order) error
	// Update persists the order with an optimistic version check.
	Update(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetForUpdate locks the row for the duration of the surrounding
	// transaction.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	FindExpiredPending(ctx context.Context, olderThan time.Time) ([]*Order, error)
}

type RoomRepository interface {
	GetRoomByID(ctx context.Context, id string) (*Room, error)
}

type CustomerRepository interface {
	GetCustomerByID(ctx context.Context, id string) (*Customer, error)
}
