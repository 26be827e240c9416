package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes each event on the Redis pub/sub channel named
// after its topic, so that every backend instance sharing the Redis
// server can relay it to its own SSE clients.  Wrap it in Async; a
// Redis round trip must not run on the request path.
type RedisPublisher struct {
	rdb redis.Cmdable
	log *slog.Logger
}

// NewRedisPublisher returns a publisher over rdb.
func NewRedisPublisher(rdb redis.Cmdable, log *slog.Logger) *RedisPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{rdb: rdb, log: log}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("broadcast: encode payload", "topic", topic, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.rdb.Publish(ctx, topic, data).Err(); err != nil {
		p.log.Warn("broadcast: redis publish failed", "topic", topic, "err", err)
	}
}

// RelayPattern matches every flight topic on the Redis side.
const RelayPattern = TopicPrefix + "*"

// RunRedisRelay subscribes to all flight channels and delivers what it
// receives into hub until ctx is cancelled.  It reconnects with the
// client's own retry logic; a closed subscription channel ends the relay.
func RunRedisRelay(ctx context.Context, rdb *redis.Client, hub *Hub, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	ps := rdb.PSubscribe(ctx, RelayPattern)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	log.Info("broadcast: redis relay subscribed", "pattern", RelayPattern)
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, flight := FlightOf(msg.Channel); !flight {
				log.Debug("broadcast: relay ignored channel", "channel", msg.Channel)
				continue
			}
			hub.Deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}
