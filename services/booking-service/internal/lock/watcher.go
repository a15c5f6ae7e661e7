package lock

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/clock"
)

// ExpiryWatcher reports leases that disappeared without an explicit
// release. The store expires keys server-side and tells nobody, so the
// watcher remembers every lease it has seen and emits an Expired event
// once a remembered lease is gone. It registers itself on the bus to drop
// leases that were released normally.
//
// Best-effort by construction: each instance only reports leases it
// observed while running.
type ExpiryWatcher struct {
	store    Store
	bus      *EventBus
	clock    clock.Clock
	interval time.Duration
	log      *logrus.Entry

	mu   sync.Mutex
	seen map[string]Lease
}

func NewExpiryWatcher(store Store, bus *EventBus, clk clock.Clock, interval time.Duration, log *logrus.Entry) *ExpiryWatcher {
	w := &ExpiryWatcher{
		store:    store,
		bus:      bus,
		clock:    clk,
		interval: interval,
		log:      log,
		seen:     make(map[string]Lease),
	}
	bus.Register(w)
	return w
}

// OnLockEvent forgets leases that ended through the manager so they are
// not mistaken for expiries.
func (w *ExpiryWatcher) OnLockEvent(event Event) {
	switch event.Type {
	case EventCreated:
		w.mu.Lock()
		w.seen[keyPrefix+event.RoomID] = Lease{
			LeaseID:   event.LeaseID,
			RoomID:    event.RoomID,
			HolderID:  event.HolderID,
			CreatedAt: event.Timestamp,
		}
		w.mu.Unlock()
	case EventReleased:
		w.mu.Lock()
		delete(w.seen, keyPrefix+event.RoomID)
		w.mu.Unlock()
	}
}

func (w *ExpiryWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep compares remembered leases against the store and announces the
// ones that vanished.
func (w *ExpiryWatcher) Sweep(ctx context.Context) {
	keys, err := w.store.ScanKeys(ctx, keyPrefix)
	if err != nil {
		w.log.WithError(err).Warn("expiry sweep: lease scan failed")
		return
	}

	live := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		live[key] = struct{}{}
		// Refresh memory for leases created by other instances.
		data, err := w.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var lease Lease
		if err := json.Unmarshal(data, &lease); err != nil {
			continue
		}
		w.mu.Lock()
		w.seen[key] = lease
		w.mu.Unlock()
	}

	w.mu.Lock()
	var expired []Lease
	for key, lease := range w.seen {
		if _, ok := live[key]; !ok {
			expired = append(expired, lease)
			delete(w.seen, key)
		}
	}
	w.mu.Unlock()

	for _, lease := range expired {
		w.bus.Publish(Event{
			Type:      EventExpired,
			RoomID:    lease.RoomID,
			HolderID:  lease.HolderID,
			LeaseID:   lease.LeaseID,
			Timestamp: w.clock.Now(),
		})
	}
}
