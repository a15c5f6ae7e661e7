package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/clock"
	"roomstay-system/services/booking-service/internal/domain"
	"roomstay-system/services/booking-service/internal/lock"
	"roomstay-system/services/booking-service/internal/notify"
	"roomstay-system/services/booking-service/internal/statemachine"
)

// LockManager is the slice of the room lock manager the orchestrator needs.
type LockManager interface {
	GetLockInfo(ctx context.Context, roomID string) (*lock.Lease, error)
	ReleaseForBooking(ctx context.Context, roomID string) bool
}

type publisher interface {
	Publish(topic string, message map[string]interface{})
}

// Service turns a validated lease into a pending order and runs the
// cancellation path. Payment settlement happens elsewhere; a booking ends
// in pending status awaiting payment.
type Service struct {
	orders    domain.OrderRepository
	rooms     domain.RoomRepository
	customers domain.CustomerRepository
	locks     LockManager
	pricing   PriceObserverRegistry
	machine   *statemachine.Machine
	sender    notify.Sender
	producer  publisher
	clock     clock.Clock
	log       *logrus.Entry
}

func NewService(
	orders domain.OrderRepository,
	rooms domain.RoomRepository,
	customers domain.CustomerRepository,
	locks LockManager,
	pricing PriceObserverRegistry,
	machine *statemachine.Machine,
	sender notify.Sender,
	producer publisher,
	clk clock.Clock,
	log *logrus.Entry,
) *Service {
	return &Service{
		orders:    orders,
		rooms:     rooms,
		customers: customers,
		locks:     locks,
		pricing:   pricing,
		machine:   machine,
		sender:    sender,
		producer:  producer,
		clock:     clk,
		log:       log,
	}
}

type CreateBookingInput struct {
	LockID     string
	RoomID     string
	CustomerID string
	CheckIn    time.Time
	CheckOut   time.Time
}

// CreateBooking consumes a live lease into a pending order.
//
// The lease id is checked before the holder id on purpose: a mismatched
// lease id is a client bug (InvalidLock), a mismatched holder is a
// security violation (Unauthorized), and callers need to tell them apart.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*domain.Order, error) {
	lease, err := s.locks.GetLockInfo(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, fmt.Errorf("%w: no lease on room %s", domain.ErrInvalidLock, in.RoomID)
	}
	if lease.LeaseID != in.LockID {
		return nil, fmt.Errorf("%w: lease id mismatch for room %s", domain.ErrInvalidLock, in.RoomID)
	}
	if lease.HolderID != in.CustomerID {
		return nil, fmt.Errorf("%w: room %s", domain.ErrUnauthorized, in.RoomID)
	}

	nights := int(in.CheckOut.Sub(in.CheckIn).Hours() / 24)
	if nights <= 0 {
		return nil, fmt.Errorf("%w: check-out must be after check-in", domain.ErrInvalidDateRange)
	}

	room, err := s.rooms.GetRoomByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetCustomerByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		CustomerID:  customer.ID,
		RoomID:      room.ID,
		CheckIn:     in.CheckIn,
		CheckOut:    in.CheckOut,
		Nights:      nights,
		TotalPrice:  float64(nights) * room.NightlyRate,
		Status:      domain.StatusPending,
		CheckInCode: newCheckInCode(),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.pricing.RegisterOrder(order)

	// The booking already exists; a failed lease cleanup must not undo it.
	if !s.locks.ReleaseForBooking(ctx, in.RoomID) {
		s.log.WithFields(logrus.Fields{
			"order_id": order.ID,
			"room_id":  in.RoomID,
		}).Warn("lease release after booking failed, lease will expire on its own")
	}

	s.notifyAsync(customer, order)

	s.log.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"room_id":     room.ID,
		"customer_id": customer.ID,
		"nights":      nights,
	}).Info("booking created")
	return order, nil
}

// CancelBooking cancels the order through the state machine and announces
// the cancellation.
func (s *Service) CancelBooking(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	order, err := s.machine.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}

	s.producer.Publish("order-cancelled", map[string]interface{}{
		"order_id": order.ID,
		"reason":   reason,
	})
	return order, nil
}

// notifyAsync sends booking confirmations without holding up the caller.
// Failures are logged and dropped.
func (s *Service) notifyAsync(customer *domain.Customer, order *domain.Order) {
	payloads := []notify.Payload{
		notify.EmailPayload{
			To:      customer.Email,
			Subject: "Reservation received",
			Body: fmt.Sprintf("Your reservation for %d night(s) is pending payment. Check-in code: %s.",
				order.Nights, order.CheckInCode),
		},
		notify.SMSPayload{
			PhoneNumber: customer.Phone,
			Text:        fmt.Sprintf("Reservation pending, check-in code %s", order.CheckInCode),
		},
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithFields(logrus.Fields{"order_id": order.ID, "panic": r}).
					Error("notification sender panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, p := range payloads {
			if err := s.sender.Send(ctx, p); err != nil {
				s.log.WithFields(logrus.Fields{"order_id": order.ID}).WithError(err).
					Warn("booking notification failed")
			}
		}
	}()
}

func newCheckInCode() string {
	return "CHK-" + strings.ToUpper(uuid.NewString()[:8])
}
