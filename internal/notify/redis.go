package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSender publishes events as JSON on a Pub/Sub channel consumed by the mail worker.
type RedisSender struct {
	client  *redis.Client
	channel string
}

func NewRedisSender(client *redis.Client, channel string) *RedisSender {
	return &RedisSender{client: client, channel: channel}
}

func (s *RedisSender) Send(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event %s to %s: %w", event.ID, s.channel, err)
	}
	return nil
}

type deadLetter struct {
	Event    Event     `json:"event"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// RedisDeadLetters appends failed events to a redis list for manual replay.
type RedisDeadLetters struct {
	client *redis.Client
	key    string
}

func NewRedisDeadLetters(client *redis.Client, key string) *RedisDeadLetters {
	return &RedisDeadLetters{client: client, key: key}
}

func (d *RedisDeadLetters) Put(ctx context.Context, event Event, reason error) error {
	entry := deadLetter{Event: event, FailedAt: time.Now().UTC()}
	if reason != nil {
		entry.Reason = reason.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead letter %s: %w", event.ID, err)
	}

	if err := d.client.RPush(ctx, d.key, data).Err(); err != nil {
		return fmt.Errorf("push dead letter %s: %w", event.ID, err)
	}
	return nil
}
