package confirm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pendingKey  = "receive_pending"
	inFlightKey = "receive_inflight"
)

// Queue tracks receive transactions awaiting chain confirmation. Entries
// are scored by the earliest time they should next be polled, so a
// deferred check naturally sinks behind ones that are already due.
type Queue struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewQueue creates a new Redis-backed confirmation queue
func NewQueue(redisURL string, logger zerolog.Logger) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis successfully")

	return &Queue{
		client: client,
		logger: logger.With().Str("component", "confirm_queue").Logger(),
	}, nil
}

// PushPending schedules a pending receive transaction for confirmation
// polling no earlier than notBefore
func (q *Queue) PushPending(ctx context.Context, txID uuid.UUID, notBefore time.Time) error {
	err := q.client.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(notBefore.Unix()),
		Member: txID.String(),
	}).Err()

	if err != nil {
		return fmt.Errorf("failed to push pending receive: %w", err)
	}

	q.logger.Debug().
		Str("transaction_id", txID.String()).
		Time("not_before", notBefore).
		Msg("Pushed pending receive to queue")

	return nil
}

// PopDue removes and returns the next transaction whose poll time has
// arrived. The second return value is false when nothing is due.
func (q *Queue) PopDue(ctx context.Context) (uuid.UUID, bool, error) {
	result, err := q.client.ZPopMin(ctx, pendingKey, 1).Result()
	if err != nil {
		if err == redis.Nil {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to pop pending receive: %w", err)
	}

	if len(result) == 0 {
		return uuid.Nil, false, nil
	}

	member := result[0].Member.(string)

	// Not due yet: put it back and report the queue idle
	if result[0].Score > float64(time.Now().Unix()) {
		if err := q.client.ZAdd(ctx, pendingKey, result[0]).Err(); err != nil {
			return uuid.Nil, false, fmt.Errorf("failed to restore undue entry: %w", err)
		}
		return uuid.Nil, false, nil
	}

	txID, err := uuid.Parse(member)
	if err != nil {
		q.logger.Warn().Str("member", member).Msg("Dropping malformed queue entry")
		return uuid.Nil, false, nil
	}

	q.logger.Debug().Str("transaction_id", member).Msg("Popped pending receive from queue")
	return txID, true, nil
}

// SetInFlight marks a transaction as being checked by a worker
func (q *Queue) SetInFlight(ctx context.Context, txID uuid.UUID, worker string) error {
	value := fmt.Sprintf("%s,%d", worker, time.Now().Unix())
	if err := q.client.HSet(ctx, inFlightKey, txID.String(), value).Err(); err != nil {
		return fmt.Errorf("failed to set receive in-flight: %w", err)
	}
	return nil
}

// RemoveInFlight removes a transaction from the in-flight tracking
func (q *Queue) RemoveInFlight(ctx context.Context, txID uuid.UUID) error {
	if err := q.client.HDel(ctx, inFlightKey, txID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove receive from in-flight: %w", err)
	}
	return nil
}

// Len returns the number of transactions waiting in the queue
func (q *Queue) Len(ctx context.Context) (int64, error) {
	length, err := q.client.ZCard(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// RequeueStuck moves transactions that have been in-flight too long back
// to the queue. Covers workers that died mid-check.
func (q *Queue) RequeueStuck(ctx context.Context, timeout time.Duration) error {
	inFlight, err := q.client.HGetAll(ctx, inFlightKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get in-flight receives: %w", err)
	}

	cutoff := time.Now().Add(-timeout).Unix()
	requeued := 0

	for member, value := range inFlight {
		parts := splitValue(value)
		if len(parts) != 2 {
			q.logger.Warn().Str("transaction_id", member).Str("value", value).Msg("Invalid in-flight value format")
			continue
		}

		startTime, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			q.logger.Warn().Str("transaction_id", member).Str("value", value).Msg("Invalid timestamp in in-flight value")
			continue
		}

		if startTime >= cutoff {
			continue
		}

		txID, err := uuid.Parse(member)
		if err != nil {
			q.client.HDel(ctx, inFlightKey, member)
			continue
		}

		if err := q.PushPending(ctx, txID, time.Now()); err != nil {
			q.logger.Error().Err(err).Str("transaction_id", member).Msg("Failed to requeue stuck receive")
			continue
		}
		if err := q.RemoveInFlight(ctx, txID); err != nil {
			q.logger.Error().Err(err).Str("transaction_id", member).Msg("Failed to remove requeued receive from in-flight")
		}

		requeued++
		q.logger.Info().
			Str("transaction_id", member).
			Str("worker", parts[0]).
			Int64("stuck_seconds", time.Now().Unix()-startTime).
			Msg("Requeued stuck receive")
	}

	if requeued > 0 {
		q.logger.Info().Int("count", requeued).Msg("Requeued stuck receives")
	}

	return nil
}

// Close closes the Redis connection
func (q *Queue) Close() error {
	return q.client.Close()
}

// splitValue splits the in-flight value format "worker,timestamp"
func splitValue(value string) []string {
	for i, char := range value {
		if char == ',' {
			return []string{value[:i], value[i+1:]}
		}
	}
	return []string{value}
}
