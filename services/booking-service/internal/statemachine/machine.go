package statemachine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/clock"
	"roomstay-system/services/booking-service/internal/domain"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
}

// Machine drives order status along the reservation lifecycle. Every
// operation reloads the order from the store inside a transaction and
// dispatches on the persisted status, so a status changed by another
// request is always respected; no state object is cached across calls.
type Machine struct {
	repo  OrderRepository
	clock clock.Clock
	log   *logrus.Entry
}

func NewMachine(repo OrderRepository, clk clock.Clock, log *logrus.Entry) *Machine {
	return &Machine{repo: repo, clock: clk, log: log}
}

// Confirm settles a paid order. Confirming an already confirmed order is a
// no-op; cancelled and completed orders reject.
func (m *Machine) Confirm(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.transition(ctx, orderID, "confirm", func(o *domain.Order) error {
		return o.Confirm()
	})
}

func (m *Machine) Cancel(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	return m.transition(ctx, orderID, "cancel", func(o *domain.Order) error {
		return o.Cancel(reason, m.clock.Now())
	})
}

func (m *Machine) Complete(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.transition(ctx, orderID, "complete", func(o *domain.Order) error {
		return o.Complete()
	})
}

func (m *Machine) transition(ctx context.Context, orderID, op string, apply func(*domain.Order) error) (*domain.Order, error) {
	var result *domain.Order
	err := m.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := m.repo.GetForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}

		before := order.Status
		if err := apply(order); err != nil {
			return err
		}
		if order.Status == before {
			// No-op transition, nothing to persist.
			result = order
			return nil
		}

		if err := m.repo.Update(txCtx, order); err != nil {
			return fmt.Errorf("persist %s of order %s: %w", op, orderID, err)
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   result.Status,
	}).Debug("order transition applied")
	return result, nil
}
