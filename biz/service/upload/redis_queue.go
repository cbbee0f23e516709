package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yi-nology/docvault/pkg/logging"
)

// RedisQueue keeps jobs in a Redis list. Delivered jobs are moved to a
// processing list until acknowledged, so jobs held by a crashed worker
// can be re-queued with Recover.
type RedisQueue struct {
	client        redis.UniversalClient
	key           string
	processingKey string
	pollTimeout   time.Duration
}

func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	return &RedisQueue{
		client:        client,
		key:           key,
		processingKey: key + ":processing",
		pollTimeout:   time.Second,
	}
}

// WithPollTimeout sets how long a single blocking pop waits.
func (q *RedisQueue) WithPollTimeout(d time.Duration) *RedisQueue {
	q.pollTimeout = d
	return q
}

func (q *RedisQueue) Name() string { return "redis" }

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := q.client.BLMove(ctx, q.key, q.processingKey, "RIGHT", "LEFT", q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis blmove: %w", err)
		}

		job, err := decodeJob(raw)
		if err != nil {
			// A payload that cannot be decoded would be redelivered forever.
			logging.Error("drop malformed upload job", logging.String("payload", raw), logging.Err(err))
			_ = q.client.LRem(ctx, q.processingKey, 1, raw).Err()
			continue
		}
		return &Delivery{
			Job: job,
			ack: func(ctx context.Context) error {
				return q.client.LRem(ctx, q.processingKey, 1, raw).Err()
			},
		}, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Recover moves every unacknowledged job back to the queue. Call it before
// workers start.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.RPopLPush(ctx, q.processingKey, q.key).Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("redis rpoplpush: %w", err)
		}
		n++
	}
}
