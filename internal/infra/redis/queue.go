package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/crashwatch/internal/core/domain"
)

const queueKey = "verify_queue"

func requestKey(id string) string {
	return fmt.Sprintf("verify_request:%s", id)
}

// VerificationQueue is the Redis-backed queue of pending verification
// requests. Requests are ordered by enqueue time, oldest first.
type VerificationQueue struct {
	rdb *redis.Client
}

// NewVerificationQueue creates a new queue over an existing client.
func NewVerificationQueue(client *Client) *VerificationQueue {
	return &VerificationQueue{rdb: client.rdb}
}

// Enqueue adds a verification request to the queue.
func (q *VerificationQueue) Enqueue(ctx context.Context, req *domain.VerificationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	// Store the payload
	if err := q.rdb.Set(ctx, requestKey(req.ID), data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set request: %w", err)
	}

	// Add to sorted set (score = enqueue time, oldest dequeued first)
	if err := q.rdb.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(req.RequestedAt.UnixNano()),
		Member: req.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// Dequeue removes and returns the oldest request, or nil when the queue is
// empty.
func (q *VerificationQueue) Dequeue(ctx context.Context) (*domain.VerificationRequest, error) {
	results, err := q.rdb.ZRange(ctx, queueKey, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	id := results[0]
	if err := q.rdb.ZRem(ctx, queueKey, id).Err(); err != nil {
		return nil, fmt.Errorf("zrem failed: %w", err)
	}

	data, err := q.rdb.Get(ctx, requestKey(id)).Bytes()
	if err == redis.Nil {
		// Payload expired but ID was still queued, skip it
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	var req domain.VerificationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	if err := q.rdb.Del(ctx, requestKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("failed to delete request: %w", err)
	}

	return &req, nil
}

// Requeue puts a request back with an incremented attempt count. The request
// keeps its original position by requested-at time.
func (q *VerificationQueue) Requeue(ctx context.Context, req *domain.VerificationRequest) error {
	req.Attempts++
	req.LastAttempt = time.Now()
	return q.Enqueue(ctx, req)
}

// Pending returns all queued requests, oldest first.
func (q *VerificationQueue) Pending(ctx context.Context) ([]*domain.VerificationRequest, error) {
	ids, err := q.rdb.ZRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	reqs := make([]*domain.VerificationRequest, 0, len(ids))
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, requestKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get request: %w", err)
		}

		var req domain.VerificationRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		reqs = append(reqs, &req)
	}

	return reqs, nil
}

// Count returns the number of queued requests.
func (q *VerificationQueue) Count(ctx context.Context) (int, error) {
	count, err := q.rdb.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
