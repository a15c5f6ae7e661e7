package domain

import "errors"

var (
	ErrAlreadyLocked          = errors.New("room already locked")
	ErrInvalidLock            = errors.New("invalid lock")
	ErrUnauthorized           = errors.New("lock held by another customer")
	ErrRoomNotFound           = errors.New("room not found")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrInvalidOrderState      = errors.New("order is not payable in its current state")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrTransientStore         = errors.New("lease store unreachable")
)
