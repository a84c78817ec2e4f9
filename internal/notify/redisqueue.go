package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

// redisListClient defines the minimal subset of the Redis client used by
// redisQueueSink.
type redisListClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// redisQueueSink pushes notifications onto the Redis list the notification
// service pops. Within one venue's batch, downstream consumers see messages
// in the order pushed.
type redisQueueSink struct {
	id     string
	typ    string
	queue  string
	client redisListClient
	log    logger.Logger
}

// newRedisQueueSink creates a Redis queue sink from configuration.
func newRedisQueueSink(_ context.Context, cfg SinkConfig, log logger.Logger) (Sink, error) {
	if cfg.RedisQueue == nil {
		return nil, fmt.Errorf("sink %q missing redis_queue configuration", cfg.ID)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisQueue.Addr,
		Password: cfg.RedisQueue.Password,
		DB:       cfg.RedisQueue.DB,
	})

	return &redisQueueSink{
		id:     cfg.ID,
		typ:    TypeRedisQueue,
		queue:  cfg.RedisQueue.Queue,
		client: client,
		log:    log,
	}, nil
}

func (s *redisQueueSink) ID() string   { return s.id }
func (s *redisQueueSink) Type() string { return s.typ }

// Publish validates the notification and pushes it onto the queue.
func (s *redisQueueSink) Publish(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := s.client.LPush(ctx, s.queue, payload).Err(); err != nil {
		s.log.ErrorObj("redis queue push failed", "sink_redis_error", map[string]any{
			"sink_id": s.id,
			"queue":   s.queue,
			"error":   err.Error(),
		})
		return fmt.Errorf("push to redis queue %s: %w", s.queue, err)
	}
	s.log.DebugObj("redis queue sink delivered notification", "sink_redis_delivery", map[string]any{
		"sink_id": s.id,
		"queue":   s.queue,
	})
	return nil
}
