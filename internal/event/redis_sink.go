package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes envelopes as JSON on a Redis channel.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Publish(ctx context.Context, topic string, e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("event: failed to marshal: %w", err)
	}
	return s.client.Publish(ctx, topic, data).Err()
}
