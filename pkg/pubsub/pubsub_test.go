package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Name string `json:"name"`
}

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(Config{})
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), "t", &Event{}))

	_, err = NewPublisher(Config{Driver: "nats"})
	assert.ErrorContains(t, err, "unsupported pubsub driver")

	mr := miniredis.RunT(t)
	p, err = NewPublisher(Config{Driver: "redis", Redis: RedisConfig{Address: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &RedisPubSub{}, p)
	require.NoError(t, p.Close())
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("user.greeted", "42", greeting{Name: "susan"})
	require.NoError(t, err)
	assert.Equal(t, "user.greeted", ev.Type)
	assert.Equal(t, "42", ev.Key)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, time.Minute)

	var g greeting
	require.NoError(t, ev.UnmarshalPayload(&g))
	assert.Equal(t, "susan", g.Name)

	_, err = NewEvent("bad", "", make(chan int))
	assert.Error(t, err)
}

func TestRedisPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = ps.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := ps.Subscribe(ctx, "microblog.users")
	require.NoError(t, err)

	ev, err := NewEvent("user.registered", "1", greeting{Name: "susan"})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, "microblog.users", ev))

	select {
	case got := <-events:
		require.NotNil(t, got)
		assert.Equal(t, "user.registered", got.Type)
		assert.Equal(t, "1", got.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, ps.Unsubscribe(ctx, "microblog.users"))
	require.NoError(t, ps.Unsubscribe(ctx, "never-subscribed"))

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}
