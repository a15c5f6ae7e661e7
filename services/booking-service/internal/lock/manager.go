package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/clock"
	"roomstay-system/services/booking-service/internal/domain"
)

const keyPrefix = "room_lock:"

const defaultLeaseTTL = 10 * time.Minute

// Lease is the value stored per locked room. At most one live lease exists
// per room at any instant; the store's set-if-absent decides the race.
type Lease struct {
	LeaseID   string    `json:"lease_id"`
	RoomID    string    `json:"room_id"`
	HolderID  string    `json:"holder_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager creates, inspects and releases per-room leases and publishes
// lifecycle events for each outcome.
type Manager struct {
	store Store
	bus   *EventBus
	clock clock.Clock
	ttl   time.Duration
	log   *logrus.Entry
}

type ManagerOption func(*Manager)

// WithDefaultTTL overrides the default lease TTL.
func WithDefaultTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

func NewManager(store Store, bus *EventBus, clk clock.Clock, log *logrus.Entry, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		bus:   bus,
		clock: clk,
		ttl:   defaultLeaseTTL,
		log:   log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateLock claims roomID for holderID. Exactly one of N concurrent
// callers wins; losers get ErrAlreadyLocked and a ConflictDetected event.
// A non-positive ttl falls back to the configured default.
func (m *Manager) CreateLock(ctx context.Context, roomID, holderID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}

	lease := Lease{
		LeaseID:   uuid.NewString(),
		RoomID:    roomID,
		HolderID:  holderID,
		CreatedAt: m.clock.Now(),
	}
	value, err := json.Marshal(lease)
	if err != nil {
		return "", fmt.Errorf("marshal lease: %w", err)
	}

	ok, err := m.store.SetIfAbsent(ctx, keyPrefix+roomID, value, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	if !ok {
		m.bus.Publish(Event{
			Type:      EventConflictDetected,
			RoomID:    roomID,
			HolderID:  holderID,
			Timestamp: m.clock.Now(),
		})
		return "", domain.ErrAlreadyLocked
	}

	m.bus.Publish(Event{
		Type:      EventCreated,
		RoomID:    roomID,
		HolderID:  holderID,
		LeaseID:   lease.LeaseID,
		Timestamp: m.clock.Now(),
	})
	return lease.LeaseID, nil
}

// IsLocked fails safe: if the store is unreachable it reports "no lock
// visible" instead of blocking callers. Search listings degrade to possibly
// stale availability rather than becoming unusable; this trades strict
// consistency for availability during a store outage.
func (m *Manager) IsLocked(ctx context.Context, roomID string) bool {
	_, err := m.store.Get(ctx, keyPrefix+roomID)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrLeaseNotFound) {
		m.log.WithFields(logrus.Fields{"room_id": roomID}).WithError(err).
			Warn("lease store unreachable, treating room as unlocked")
	}
	return false
}

// GetLockInfo returns the live lease for roomID, or nil when none exists.
func (m *Manager) GetLockInfo(ctx context.Context, roomID string) (*Lease, error) {
	data, err := m.store.Get(ctx, keyPrefix+roomID)
	if errors.Is(err, ErrLeaseNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	var lease Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, fmt.Errorf("unmarshal lease for room %s: %w", roomID, err)
	}
	return &lease, nil
}

// ReleaseLock finds the lease by id, verifies ownership and deletes it.
// Releasing a missing or foreign lease returns false, never an error:
// racing a TTL expiry is a normal occurrence.
//
// Ownership is checked by comparing holder ids against the value written at
// creation, not by a fencing token. A holder whose lease expired and was
// re-acquired could in theory release the new lease if the same holder id
// re-won it; accepted at this scale.
func (m *Manager) ReleaseLock(ctx context.Context, leaseID, holderID string) bool {
	lease, key, ok := m.findByLeaseID(ctx, leaseID)
	if !ok {
		return false
	}
	if lease.HolderID != holderID {
		m.log.WithFields(logrus.Fields{
			"lease_id":  leaseID,
			"holder_id": holderID,
			"owner_id":  lease.HolderID,
		}).Warn("release denied: holder does not own lease")
		return false
	}
	return m.deleteAndAnnounce(ctx, key, lease, ReasonManual)
}

// ReleaseLockByRoomID force-releases whatever lease is on the room.
// Administrative use only.
func (m *Manager) ReleaseLockByRoomID(ctx context.Context, roomID string) bool {
	lease, err := m.GetLockInfo(ctx, roomID)
	if err != nil || lease == nil {
		return false
	}
	return m.deleteAndAnnounce(ctx, keyPrefix+roomID, *lease, ReasonAdminRelease)
}

// ReleaseForBooking removes the lease consumed by a completed booking. The
// orchestrator has already validated lease and holder.
func (m *Manager) ReleaseForBooking(ctx context.Context, roomID string) bool {
	lease, err := m.GetLockInfo(ctx, roomID)
	if err != nil || lease == nil {
		return false
	}
	return m.deleteAndAnnounce(ctx, keyPrefix+roomID, *lease, ReasonBookingCompleted)
}

// GetLockTTL reports the remaining lease lifetime, or -1 when no lease
// exists or the store cannot answer.
func (m *Manager) GetLockTTL(ctx context.Context, roomID string) time.Duration {
	ttl, err := m.store.TTLRemaining(ctx, keyPrefix+roomID)
	if err != nil {
		return -1
	}
	return ttl
}

// findByLeaseID locates a lease by its id with a single key scan.
func (m *Manager) findByLeaseID(ctx context.Context, leaseID string) (Lease, string, bool) {
	keys, err := m.store.ScanKeys(ctx, keyPrefix)
	if err != nil {
		m.log.WithError(err).Warn("lease scan failed")
		return Lease{}, "", false
	}
	for _, key := range keys {
		data, err := m.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var lease Lease
		if err := json.Unmarshal(data, &lease); err != nil {
			continue
		}
		if lease.LeaseID == leaseID {
			return lease, key, true
		}
	}
	return Lease{}, "", false
}

func (m *Manager) deleteAndAnnounce(ctx context.Context, key string, lease Lease, reason string) bool {
	deleted, err := m.store.Delete(ctx, key)
	if err != nil {
		m.log.WithFields(logrus.Fields{"lease_id": lease.LeaseID}).WithError(err).
			Warn("lease delete failed")
		return false
	}
	if !deleted {
		return false
	}
	m.bus.Publish(Event{
		Type:      EventReleased,
		RoomID:    lease.RoomID,
		HolderID:  lease.HolderID,
		LeaseID:   lease.LeaseID,
		Timestamp: m.clock.Now(),
		Reason:    reason,
	})
	return true
}
