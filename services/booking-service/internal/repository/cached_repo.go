package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"roomstay-system/services/booking-service/internal/domain"
)

// CachedOrderRepository is a read-through cache over the primary order
// repository. Locking reads and transaction control always go to the
// primary; the cache only serves plain lookups and is invalidated on
// every write.
type CachedOrderRepository struct {
	primary     domain.OrderRepository
	redisClient *redis.Client
	ttl         time.Duration
}

func NewCachedOrderRepository(
	primary domain.OrderRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
) *CachedOrderRepository {
	return &CachedOrderRepository{
		primary:     primary,
		redisClient: redisClient,
		ttl:         cacheTTL,
	}
}

func (r *CachedOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	cacheKey := "order:" + id

	cached, err := r.redisClient.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var order domain.Order
		if err := json.Unmarshal(cached, &order); err == nil {
			return &order, nil
		}
	}

	order, err := r.primary.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(order); err == nil {
		r.redisClient.Set(ctx, cacheKey, data, r.ttl)
	}
	return order, nil
}

// GetForUpdate bypasses the cache: a locking read must see the row.
func (r *CachedOrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.primary.GetForUpdate(ctx, id)
}

func (r *CachedOrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.primary.WithTx(ctx, fn)
}

func (r *CachedOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.primary.Create(ctx, order)
}

func (r *CachedOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	defer r.redisClient.Del(ctx, "order:"+order.ID)
	return r.primary.Update(ctx, order)
}

func (r *CachedOrderRepository) FindExpiredPending(ctx context.Context, olderThan time.Time) ([]*domain.Order, error) {
	return r.primary.FindExpiredPending(ctx, olderThan)
}
