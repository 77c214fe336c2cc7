package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRetries = 10

	retryInitialInterval = 5 * time.Millisecond
	retryMaxInterval     = 100 * time.Millisecond
)

var ErrTooManyConflicts = errors.New("too many concurrent updates")

// AttemptStore implements cache.AttemptStore using Redis hashes.
// Update runs inside WATCH/MULTI so several instances can share one counter.
type AttemptStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
}

var _ cache.AttemptStore = (*AttemptStore)(nil)

// NewAttemptStore creates a new [AttemptStore] instance. The client is owned by the caller.
func NewAttemptStore(client redis.UniversalClient, prefix string) *AttemptStore {
	return &AttemptStore{
		client:     client,
		prefix:     prefix,
		maxRetries: defaultMaxRetries,
	}
}

// redisKey returns the Redis key for a given identifier
func (r *AttemptStore) redisKey(identifier string) string {
	return fmt.Sprintf("%s:login_attempt:%s", r.prefix, identifier)
}

// Get retrieves an attempt record from Redis
func (r *AttemptStore) Get(ctx context.Context, identifier string) (*domain.LoginAttemptRecord, error) {
	res, err := r.client.HGetAll(ctx, r.redisKey(identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get login attempts from Redis: %w", err)
	}

	return decodeRecord(identifier, res)
}

func decodeRecord(identifier string, res map[string]string) (*domain.LoginAttemptRecord, error) {
	if len(res) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(res["count"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse count: %w", err)
	}
	lastMillis, err := strconv.ParseInt(res["last_attempt_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_attempt_at: %w", err)
	}

	return &domain.LoginAttemptRecord{
		Identifier:    identifier,
		Count:         count,
		LastAttemptAt: time.UnixMilli(lastMillis),
	}, nil
}

// Update implements cache.AttemptStore.Update with optimistic locking.
func (r *AttemptStore) Update(ctx context.Context, identifier string, ttl time.Duration, fn cache.AttemptUpdateFunc) error {
	key := r.redisKey(identifier)

	txf := func(tx *redis.Tx) error {
		res, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		current, err := decodeRecord(identifier, res)
		if err != nil {
			return err
		}

		next, changed := fn(current)
		if !changed {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.HSet(ctx, key,
				"count", next.Count,
				"last_attempt_at", next.LastAttemptAt.UnixMilli(),
			)
			if ttl > 0 {
				pipe.PExpire(ctx, key, ttl)
			}
			return nil
		})
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = retryInitialInterval
	expBackoff.MaxInterval = retryMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.client.Watch(ctx, txf, key)
		if err == nil || errors.Is(err, redis.TxFailedErr) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(r.maxRetries)), // #nosec G115 -- constant
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("failed to update login attempts for %s: %w", key, ErrTooManyConflicts)
	default:
		return fmt.Errorf("failed to update login attempts in Redis: %w", err)
	}
}

// Delete removes an attempt record from Redis
func (r *AttemptStore) Delete(ctx context.Context, identifier string) error {
	if err := r.client.Del(ctx, r.redisKey(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to delete login attempts from Redis: %w", err)
	}

	return nil
}

// Count returns the number of attempt records under the prefix
func (r *AttemptStore) Count(ctx context.Context) int {
	var cursor uint64
	count := 0
	pattern := fmt.Sprintf("%s:login_attempt:*", r.prefix)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return count
		}
		count += len(keys)

		cursor = next
		if cursor == 0 {
			return count
		}
	}
}

// Close is a no-op; the client belongs to the caller.
func (r *AttemptStore) Close() error {
	return nil
}
