package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

const redisKeyPrefix = "simulation:"

// RedisStore keeps simulations as JSON values that expire after a TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewRedisClient connects to a standalone Redis server and verifies it responds.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore creates a store on client. A zero ttl keeps records forever.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now, logger: logger}
}

// Save stores analysis under a new reference code.
func (r *RedisStore) Save(ctx context.Context, analysis credit.Analysis) (Record, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		record := newRecord(analysis, r.now())
		data, err := json.Marshal(record)
		if err != nil {
			return Record{}, fmt.Errorf("failed to encode simulation: %w", err)
		}

		stored, err := r.client.SetNX(ctx, redisKeyPrefix+record.Code, data, r.ttl).Result()
		if err != nil {
			return Record{}, fmt.Errorf("failed to save simulation %s: %w", record.Code, err)
		}
		if stored {
			r.logger.Debug("simulation saved",
				zap.String("op", "storage.RedisStore.Save"),
				zap.String("code", record.Code),
				zap.Duration("ttl", r.ttl),
			)
			return record, nil
		}
	}
	return Record{}, fmt.Errorf("failed to allocate a unique reference code after %d attempts", maxCodeAttempts)
}

// Get returns the record for code.
func (r *RedisStore) Get(ctx context.Context, code string) (Record, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load simulation %s: %w", code, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("failed to decode simulation %s: %w", code, err)
	}
	return record, nil
}
