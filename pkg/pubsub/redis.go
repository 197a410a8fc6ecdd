package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// RedisPubSub publishes events on Redis channels and can subscribe to them.
type RedisPubSub struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
}

// NewRedisPubSub connects to Redis and verifies the connection.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPubSubFromClient(client), nil
}

// NewRedisPubSubFromClient wraps an existing client.
func NewRedisPubSubFromClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
	}
}

// Publish publishes an event to the channel named topic.
func (r *RedisPubSub) Publish(ctx context.Context, topic string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of events published on topic. The channel
// is closed when ctx is done or Unsubscribe is called.
func (r *RedisPubSub) Subscribe(ctx context.Context, topic string) (<-chan *Event, error) {
	ps := r.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	r.mu.Lock()
	r.subscriptions[topic] = ps
	r.mu.Unlock()

	out := make(chan *Event, 100)
	go func() {
		defer close(out)
		l := pkglog.L()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					l.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
					continue
				}
				select {
				case out <- &ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Unsubscribe closes the subscription on topic.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, topic string) error {
	r.mu.Lock()
	ps, ok := r.subscriptions[topic]
	delete(r.subscriptions, topic)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return ps.Close()
}

// Close closes all subscriptions and the client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	for topic, ps := range r.subscriptions {
		ps.Close()
		delete(r.subscriptions, topic)
	}
	r.mu.Unlock()
	return r.client.Close()
}

var (
	_ Publisher = (*RedisPubSub)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
