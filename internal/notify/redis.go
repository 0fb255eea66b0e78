package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// redisPublisher is the subset of *redis.Client used for PUBLISH.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// Redis publishes events to a Redis pub/sub channel.
type Redis struct {
	client  redisPublisher
	channel string
}

// NewRedis creates a publisher for channel on client.
func NewRedis(client *redis.Client, channel string) *Redis {
	return newRedis(client, channel)
}

func newRedis(client redisPublisher, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel}
}

// OrderCreated publishes a Created event for orderID.
func (r *Redis) OrderCreated(ctx context.Context, orderID int64, at time.Time) error {
	payload := Created{OrderID: orderID, Timestamp: at}.Encode()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", r.channel)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
