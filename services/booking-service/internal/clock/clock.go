package clock

import (
	"context"
	"time"
)

// Clock allows injecting time into services.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type FixedClock struct {
	now time.Time
}

// NewFixed returns a clock pinned to t (useful for tests). Advance moves it.
func NewFixed(t time.Time) *FixedClock {
	return &FixedClock{now: t.UTC()}
}

func (f *FixedClock) Now() time.Time {
	return f.now
}

func (f *FixedClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Sleeper abstracts retry delays so tests do not wait in real time.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func NewSleeper() Sleeper {
	return realSleeper{}
}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopSleeper returns immediately; tests assert delays through RecordingSleeper.
type NopSleeper struct{}

func (NopSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// RecordingSleeper captures requested delays without sleeping.
type RecordingSleeper struct {
	Delays []time.Duration
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.Delays = append(s.Delays, d)
	return ctx.Err()
}
