package lock

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventCreated          EventType = "created"
	EventReleased         EventType = "released"
	EventExpired          EventType = "expired"
	EventConflictDetected EventType = "conflict_detected"
)

// Release reasons carried on EventReleased.
const (
	ReasonManual           = "manual"
	ReasonAdminRelease     = "admin_release"
	ReasonBookingCompleted = "booking_completed"
)

// Event is an immutable lock lifecycle record. The core never persists it;
// observers may.
type Event struct {
	Type      EventType
	RoomID    string
	HolderID  string
	LeaseID   string
	Timestamp time.Time
	Reason    string
}

type Observer interface {
	OnLockEvent(event Event)
}

// EventBus fans lock events out to registered observers, synchronously and
// in registration order. An observer panicking must not stop delivery to
// the rest nor fail the lock operation that published the event.
type EventBus struct {
	mu        sync.RWMutex
	observers []Observer
	log       *logrus.Entry
}

func NewEventBus(log *logrus.Entry) *EventBus {
	return &EventBus{log: log}
}

func (b *EventBus) Register(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *EventBus) Unregister(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			return
		}
	}
}

func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	snapshot := make([]Observer, len(b.observers))
	copy(snapshot, b.observers)
	b.mu.RUnlock()

	for _, o := range snapshot {
		b.notify(o, event)
	}
}

func (b *EventBus) notify(o Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"event_type": event.Type,
				"room_id":    event.RoomID,
				"panic":      r,
			}).Error("lock observer panicked")
		}
	}()
	o.OnLockEvent(event)
}
