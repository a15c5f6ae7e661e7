package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLeaseNotFound is returned by Store implementations when a key does not
// exist (or has already expired server-side).
var ErrLeaseNotFound = errors.New("lease not found")

// Store is the shared key-value store that serializes lock acquisition
// across application instances. SetIfAbsent must be atomic at the store:
// two concurrent callers for the same key get exactly one true.
type Store interface {
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	ScanKeys(ctx context.Context, prefix string) ([]string, error)
	TTLRemaining(ctx context.Context, key string) (time.Duration, error)
}
