package broadcast

import (
	"context"
	"strings"

	"drawphone/internal/game"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisChannelPrefix = "drawphone:game:"

// RedisGateway publishes events to Redis so every instance running a
// RedisRelay can deliver them to its own connections.
type RedisGateway struct {
	client *redis.Client
}

func NewRedisGateway(client *redis.Client) *RedisGateway {
	return &RedisGateway{client: client}
}

func (g *RedisGateway) Publish(ctx context.Context, code string, ev game.Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return g.client.Publish(ctx, redisChannelPrefix+code, data).Err()
}

// RedisRelay forwards every game message published on Redis into a local Hub.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
	ready  chan struct{}
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, hub: hub, logger: logger, ready: make(chan struct{})}
}

// Ready is closed once the relay's subscription is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run blocks until ctx is done or the subscription fails.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	messages := pubsub.Channel()
	close(r.ready)
	r.logger.Info("redis relay subscribed", zap.String("pattern", redisChannelPrefix+"*"))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			code := strings.TrimPrefix(msg.Channel, redisChannelPrefix)
			r.hub.Deliver(code, []byte(msg.Payload))
		}
	}
}
