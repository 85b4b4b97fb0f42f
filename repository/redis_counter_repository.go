package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/utils"
	"github.com/redis/go-redis/v9"
)

const (
	redisFieldValue     = "value"
	redisFieldCreatedAt = "created_at"
	redisFieldUpdatedAt = "updated_at"
)

// RedisCounterRepository stores each counter as a hash at <prefix>counter:<id>
type RedisCounterRepository struct {
	rc     redis.UniversalClient
	prefix string
}

func NewRedisCounterRepository(rc redis.UniversalClient, prefix string) CounterRepository {
	return &RedisCounterRepository{rc: rc, prefix: prefix}
}

func (r *RedisCounterRepository) key(id string) string {
	return r.prefix + "counter:" + id
}

func (r *RedisCounterRepository) ByID(ctx context.Context, id string) (*models.Counter, error) {
	fields, err := r.rc.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load counter %q: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	c, err := counterFromHash(id, fields)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDefault creates the zero default field by field with HSETNX, so a racing
// writer's fields are never overwritten, then reads the hash back.
func (r *RedisCounterRepository) GetDefault(ctx context.Context) (*models.Counter, error) {
	key := r.key(models.DefaultCounterID)
	now := utils.FormatTimestamp(utils.UTCNow())
	_, err := r.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, redisFieldValue, "0")
		pipe.HSetNX(ctx, key, redisFieldCreatedAt, now)
		pipe.HSetNX(ctx, key, redisFieldUpdatedAt, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default counter: %w", err)
	}

	c, err := r.ByID(ctx, models.DefaultCounterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("default counter missing at %s", key)
	}
	return c, nil
}

// Save writes value and updated_at; created_at is only set when absent
func (r *RedisCounterRepository) Save(ctx context.Context, counter models.Counter) error {
	key := r.key(counter.ID())
	_, err := r.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			redisFieldValue, strconv.FormatInt(counter.Value(), 10),
			redisFieldUpdatedAt, utils.FormatTimestamp(utils.OrUTCNow(counter.UpdatedAt())),
		)
		pipe.HSetNX(ctx, key, redisFieldCreatedAt, utils.FormatTimestamp(utils.OrUTCNow(counter.CreatedAt())))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save counter %q: %w", counter.ID(), err)
	}
	return nil
}

func counterFromHash(id string, fields map[string]string) (models.Counter, error) {
	value, err := strconv.ParseInt(fields[redisFieldValue], 10, 64)
	if err != nil {
		return models.Counter{}, fmt.Errorf("malformed value for counter %q: %w", id, err)
	}
	createdAt, err := utils.ParseTimestamp(fields[redisFieldCreatedAt])
	if err != nil {
		return models.Counter{}, fmt.Errorf("malformed created_at for counter %q: %w", id, err)
	}
	updatedAt, err := utils.ParseTimestamp(fields[redisFieldUpdatedAt])
	if err != nil {
		return models.Counter{}, fmt.Errorf("malformed updated_at for counter %q: %w", id, err)
	}
	return models.NewCounter(models.CounterProps{
		ID:        id,
		Value:     value,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	}), nil
}
