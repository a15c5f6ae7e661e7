package lock

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/clock"
	"roomstay-system/services/booking-service/internal/domain"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// memStore is an in-memory Store with the same atomicity as the real one:
// set-if-absent is decided under a single mutex.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	clock   clock.Clock
	failAll bool
}

func newMemStore(clk clock.Clock) *memStore {
	return &memStore{entries: make(map[string]memEntry), clock: clk}
}

func (s *memStore) alive(e memEntry) bool {
	return s.clock.Now().Before(e.expiresAt)
}

func (s *memStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errors.New("store down")
	}
	if e, ok := s.entries[key]; ok && s.alive(e) {
		return false, nil
	}
	s.entries[key] = memEntry{value: value, expiresAt: s.clock.Now().Add(ttl)}
	return true, nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errors.New("store down")
	}
	e, ok := s.entries[key]
	if !ok || !s.alive(e) {
		return nil, ErrLeaseNotFound
	}
	return e.value, nil
}

func (s *memStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errors.New("store down")
	}
	e, ok := s.entries[key]
	delete(s.entries, key)
	return ok && s.alive(e), nil
}

func (s *memStore) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errors.New("store down")
	}
	var keys []string
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) && s.alive(e) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *memStore) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, errors.New("store down")
	}
	e, ok := s.entries[key]
	if !ok || !s.alive(e) {
		return 0, ErrLeaseNotFound
	}
	return e.expiresAt.Sub(s.clock.Now()), nil
}

// recordingObserver captures events; safe for concurrent publishes.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnLockEvent(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) byType(t EventType) []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Event
	for _, e := range o.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *memStore, *recordingObserver, *clock.FixedClock) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := newMemStore(clk)
	bus := NewEventBus(testLogger())
	obs := &recordingObserver{}
	bus.Register(obs)
	mgr := NewManager(store, bus, clk, testLogger(), WithDefaultTTL(10*time.Minute))
	return mgr, store, obs, clk
}

func TestManager_CreateLock(t *testing.T) {
	ctx := context.Background()

	t.Run("grants lease and emits created", func(t *testing.T) {
		mgr, _, obs, _ := newTestManager(t)

		leaseID, err := mgr.CreateLock(ctx, "room-7", "customer-42", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if leaseID == "" {
			t.Fatal("expected a lease id")
		}
		created := obs.byType(EventCreated)
		if len(created) != 1 {
			t.Fatalf("expected 1 created event, got %d", len(created))
		}
		if created[0].RoomID != "room-7" || created[0].HolderID != "customer-42" || created[0].LeaseID != leaseID {
			t.Fatalf("unexpected created event: %+v", created[0])
		}
	})

	t.Run("second caller is denied with conflict event", func(t *testing.T) {
		mgr, _, obs, _ := newTestManager(t)

		if _, err := mgr.CreateLock(ctx, "room-9", "customer-a", 0); err != nil {
			t.Fatalf("first lock failed: %v", err)
		}
		_, err := mgr.CreateLock(ctx, "room-9", "customer-b", 0)
		if !errors.Is(err, domain.ErrAlreadyLocked) {
			t.Fatalf("expected ErrAlreadyLocked, got %v", err)
		}
		conflicts := obs.byType(EventConflictDetected)
		if len(conflicts) != 1 {
			t.Fatalf("expected exactly 1 conflict event, got %d", len(conflicts))
		}
		if conflicts[0].HolderID != "customer-b" {
			t.Fatalf("conflict attributed to wrong holder: %+v", conflicts[0])
		}
	})

	t.Run("mutual exclusion under concurrency", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)

		const n = 32
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins, denials := 0, 0

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := mgr.CreateLock(ctx, "room-1", "customer", 0)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, domain.ErrAlreadyLocked):
					denials++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if wins != 1 {
			t.Fatalf("expected exactly 1 winner, got %d", wins)
		}
		if denials != n-1 {
			t.Fatalf("expected %d denials, got %d", n-1, denials)
		}
	})

	t.Run("lock reacquirable after ttl expiry", func(t *testing.T) {
		mgr, _, _, clk := newTestManager(t)

		if _, err := mgr.CreateLock(ctx, "room-3", "customer-a", 5*time.Minute); err != nil {
			t.Fatalf("first lock failed: %v", err)
		}
		clk.Advance(6 * time.Minute)
		if _, err := mgr.CreateLock(ctx, "room-3", "customer-b", 0); err != nil {
			t.Fatalf("expected lock after expiry, got %v", err)
		}
	})
}

func TestManager_ReleaseLock(t *testing.T) {
	ctx := context.Background()

	t.Run("holder releases own lease", func(t *testing.T) {
		mgr, _, obs, _ := newTestManager(t)

		leaseID, err := mgr.CreateLock(ctx, "room-7", "customer-42", 0)
		if err != nil {
			t.Fatalf("lock failed: %v", err)
		}
		if !mgr.ReleaseLock(ctx, leaseID, "customer-42") {
			t.Fatal("expected release to succeed")
		}
		released := obs.byType(EventReleased)
		if len(released) != 1 || released[0].Reason != ReasonManual {
			t.Fatalf("expected 1 manual release event, got %+v", released)
		}
		if mgr.IsLocked(ctx, "room-7") {
			t.Fatal("room should be unlocked after release")
		}
	})

	t.Run("releasing nonexistent lease returns false", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		if mgr.ReleaseLock(ctx, "no-such-lease", "customer-42") {
			t.Fatal("expected false for nonexistent lease")
		}
	})

	t.Run("double release returns false", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		leaseID, _ := mgr.CreateLock(ctx, "room-7", "customer-42", 0)
		if !mgr.ReleaseLock(ctx, leaseID, "customer-42") {
			t.Fatal("first release should succeed")
		}
		if mgr.ReleaseLock(ctx, leaseID, "customer-42") {
			t.Fatal("second release should return false")
		}
	})

	t.Run("wrong holder cannot release", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		leaseID, _ := mgr.CreateLock(ctx, "room-7", "customer-42", 0)
		if mgr.ReleaseLock(ctx, leaseID, "customer-99") {
			t.Fatal("foreign holder must not release the lease")
		}
		if !mgr.IsLocked(ctx, "room-7") {
			t.Fatal("lease should survive a denied release")
		}
	})

	t.Run("admin force release by room id", func(t *testing.T) {
		mgr, _, obs, _ := newTestManager(t)
		if _, err := mgr.CreateLock(ctx, "room-5", "customer-1", 0); err != nil {
			t.Fatalf("lock failed: %v", err)
		}
		if !mgr.ReleaseLockByRoomID(ctx, "room-5") {
			t.Fatal("expected admin release to succeed")
		}
		released := obs.byType(EventReleased)
		if len(released) != 1 || released[0].Reason != ReasonAdminRelease {
			t.Fatalf("expected admin_release reason, got %+v", released)
		}
	})
}

func TestManager_IsLocked_FailsSafe(t *testing.T) {
	ctx := context.Background()
	mgr, store, _, _ := newTestManager(t)

	if _, err := mgr.CreateLock(ctx, "room-7", "customer-42", 0); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	store.failAll = true

	if mgr.IsLocked(ctx, "room-7") {
		t.Fatal("store outage must report unlocked, not block or crash")
	}
}

func TestManager_GetLockTTL(t *testing.T) {
	ctx := context.Background()
	mgr, _, _, _ := newTestManager(t)

	if got := mgr.GetLockTTL(ctx, "room-7"); got != -1 {
		t.Fatalf("expected -1 for unlocked room, got %v", got)
	}
	if _, err := mgr.CreateLock(ctx, "room-7", "customer-42", 10*time.Minute); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if got := mgr.GetLockTTL(ctx, "room-7"); got != 10*time.Minute {
		t.Fatalf("expected 10m remaining, got %v", got)
	}
}

func TestManager_GetLockInfo(t *testing.T) {
	ctx := context.Background()
	mgr, _, _, _ := newTestManager(t)

	info, err := mgr.GetLockInfo(ctx, "room-7")
	if err != nil || info != nil {
		t.Fatalf("expected nil lease for unlocked room, got %+v, %v", info, err)
	}

	leaseID, _ := mgr.CreateLock(ctx, "room-7", "customer-42", 0)
	info, err = mgr.GetLockInfo(ctx, "room-7")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if info == nil || info.LeaseID != leaseID || info.HolderID != "customer-42" {
		t.Fatalf("unexpected lease info: %+v", info)
	}
}
