package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
	StatusCompleted OrderStatus = "completed"
)

// Order is the durable reservation record. Status moves only along the
// lifecycle graph via Confirm/Cancel/Complete; cancellation is a status,
// never a row deletion.
type Order struct {
	ID           string
	CustomerID   string
	RoomID       string
	CheckIn      time.Time
	CheckOut     time.Time
	Nights       int
	TotalPrice   float64
	Status       OrderStatus
	CheckInCode  string
	CancelReason string
	CancelledAt  *time.Time
	Version      int
	CreatedAt    time.Time
}

// Confirm moves a pending order to confirmed. Confirming an already
// confirmed order is a no-op so a duplicated payment-success event does
// not surface as an error.
func (o *Order) Confirm() error {
	switch o.Status {
	case StatusPending:
		o.Status = StatusConfirmed
		return nil
	case StatusConfirmed:
		return nil
	default:
		return fmt.Errorf("%w: cannot confirm %s order", ErrInvalidStateTransition, o.Status)
	}
}

func (o *Order) Cancel(reason string, at time.Time) error {
	switch o.Status {
	case StatusPending, StatusConfirmed:
		o.Status = StatusCancelled
		o.CancelReason = reason
		o.CancelledAt = &at
		return nil
	default:
		return fmt.Errorf("%w: cannot cancel %s order", ErrInvalidStateTransition, o.Status)
	}
}

// Complete marks a confirmed stay as finished. A pending order cannot be
// completed before payment confirms it.
func (o *Order) Complete() error {
	if o.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot complete %s order", ErrInvalidStateTransition, o.Status)
	}
	o.Status = StatusCompleted
	return nil
}
