package payment

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type Observer interface {
	OnPaymentSuccess(ctx context.Context, resp Response)
}

// EventBus fans successful payment responses out to observers. Each
// observer call is individually isolated: one failing must not block the
// others, and none may fail the payment that already succeeded.
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

func (b *EventBus) Publish(ctx context.Context, resp Response) {
	b.mu.RLock()
	snapshot := make([]Observer, len(b.observers))
	copy(snapshot, b.observers)
	b.mu.RUnlock()

	for _, o := range snapshot {
		b.notify(ctx, o, resp)
	}
}

func (b *EventBus) notify(ctx context.Context, o Observer, resp Response) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"order_id":       resp.OrderID,
				"transaction_id": resp.TransactionID,
				"panic":          r,
			}).Error("payment observer panicked")
		}
	}()
	o.OnPaymentSuccess(ctx, resp)
}
