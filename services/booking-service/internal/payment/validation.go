package payment

import (
	"context"
	"fmt"

	"roomstay-system/services/booking-service/internal/domain"
)

type orderGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// ValidationDecorator guards the pipeline entrance: the order must exist
// and be pending before any provider call or retry cost is incurred.
// Validation failures propagate immediately and are never retried.
type ValidationDecorator struct {
	next   Processor
	orders orderGetter
}

func NewValidationDecorator(next Processor, orders orderGetter) *ValidationDecorator {
	return &ValidationDecorator{next: next, orders: orders}
}

func (d *ValidationDecorator) Process(ctx context.Context, req Request) (*Response, error) {
	order, err := d.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending {
		// Paying a confirmed order again would double-charge.
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidOrderState, order.ID, order.Status)
	}
	return d.next.Process(ctx, req)
}
