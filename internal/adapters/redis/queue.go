package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gmb_sync/internal/adapters/observability"
)

// Envelope wraps every queued message.
type Envelope struct {
	ID      string          `json:"id"`
	SentAt  time.Time       `json:"sent_at"`
	Payload json.RawMessage `json:"payload"`
}

// Queue is a FIFO work queue on Redis lists: RPUSH to publish, BLPOP to
// consume.
type Queue struct{ c *redis.Client }

func NewQueue(c *redis.Client) *Queue { return &Queue{c: c} }

// Publish appends msgs to queue as one pipelined batch.
func (q *Queue) Publish(ctx context.Context, queue string, msgs ...any) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %s message: %w", queue, err)
		}
		b, err := json.Marshal(Envelope{ID: uuid.NewString(), SentAt: now, Payload: payload})
		if err != nil {
			return fmt.Errorf("encode %s envelope: %w", queue, err)
		}
		values = append(values, b)
	}
	if err := q.c.RPush(ctx, queue, values...).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	observability.ObserveQueue(queue, "out", len(msgs))
	return nil
}

// Pop blocks up to wait for the next message and returns its payload.
func (q *Queue) Pop(ctx context.Context, queue string, wait time.Duration) ([]byte, bool, error) {
	res, err := q.c.BLPop(ctx, wait, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pop from %s: %w", queue, err)
	}
	// res is [key, value]
	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return nil, false, fmt.Errorf("decode %s envelope: %w", queue, err)
	}
	observability.ObserveQueue(queue, "in", 1)
	return env.Payload, true, nil
}

// Len reports the backlog of queue.
func (q *Queue) Len(ctx context.Context, queue string) (int64, error) {
	return q.c.LLen(ctx, queue).Result()
}
