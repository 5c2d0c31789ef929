package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"vibeu/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:auth0|abc", UserChannel("auth0|abc"))
}

func TestNotifier_WithoutRedisDeliversLocally(t *testing.T) {
	t.Parallel()
	hub := NewHub(HubConfig{}, nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()
	sub, err := hub.Subscribe(context.Background(), "A")
	require.NoError(t, err)

	n := NewNotifier(nil, hub)
	require.NoError(t, n.Start(context.Background()))
	require.NoError(t, n.PublishUser(context.Background(), "A", models.EventNotificationCreated, map[string]string{"id": "n1"}))

	ev := recv(t, sub)
	assert.Equal(t, models.EventNotificationCreated, ev.Type)
	assert.JSONEq(t, `{"id":"n1"}`, string(ev.Payload))

	require.NoError(t, n.PublishBroadcast(context.Background(), models.EventPostCreated, map[string]string{"id": "p1"}))
	assert.Equal(t, models.EventPostCreated, recv(t, sub).Type)
}

func TestNotifier_FansOutAcrossInstancesThroughRedis(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two instances share one Redis; the recipient is connected to the second.
	hubA := NewHub(HubConfig{}, nil)
	hubB := NewHub(HubConfig{}, nil)
	defer func() { _ = hubA.Shutdown(ctx); _ = hubB.Shutdown(ctx) }()
	notifierA := NewNotifier(rdb, hubA)
	notifierB := NewNotifier(rdb, hubB)
	require.NoError(t, notifierA.Start(ctx))
	require.NoError(t, notifierB.Start(ctx))

	sub, err := hubB.Subscribe(ctx, "A")
	require.NoError(t, err)
	other, err := hubB.Subscribe(ctx, "B")
	require.NoError(t, err)

	require.NoError(t, notifierA.PublishUser(ctx, "A", models.EventNotificationCreated, map[string]string{"id": "n1"}))
	ev := recv(t, sub)
	assert.Equal(t, models.EventNotificationCreated, ev.Type)

	require.NoError(t, notifierA.PublishBroadcast(ctx, models.EventPostCreated, map[string]string{"id": "p1"}))
	assert.Equal(t, models.EventPostCreated, recv(t, sub).Type)
	assert.Equal(t, models.EventPostCreated, recv(t, other).Type)

	select {
	case ev := <-other.C():
		t.Fatalf("B received %s meant for A", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_RedisFailureFallsBackToLocalDelivery(t *testing.T) {
	mr, rdb := newTestRedis(t)
	hub := NewHub(HubConfig{}, nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()
	sub, err := hub.Subscribe(context.Background(), "A")
	require.NoError(t, err)

	n := NewNotifier(rdb, hub)
	mr.Close()

	err = n.PublishUser(context.Background(), "A", models.EventNotificationCreated, map[string]string{"id": "n1"})
	require.Error(t, err)
	assert.Equal(t, models.CodeDelivery, models.ErrorCode(err))
	assert.Equal(t, models.EventNotificationCreated, recv(t, sub).Type)
}

func TestNotifier_FailedStartSwitchesToLocalDelivery(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	hub := NewHub(HubConfig{}, nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()
	sub, err := hub.Subscribe(context.Background(), "A")
	require.NoError(t, err)

	n := NewNotifier(rdb, hub)
	require.Error(t, n.Start(context.Background()))

	require.NoError(t, n.PublishUser(context.Background(), "A", models.EventNotificationCreated, map[string]string{"id": "n1"}))
	ev := recv(t, sub)
	assert.Equal(t, models.EventNotificationCreated, ev.Type)
	assert.JSONEq(t, `{"id":"n1"}`, string(ev.Payload))

	require.NoError(t, n.PublishBroadcast(context.Background(), models.EventPostCreated, map[string]string{"id": "p1"}))
	assert.Equal(t, models.EventPostCreated, recv(t, sub).Type)
}

func TestNotifier_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	hub := NewHub(HubConfig{}, nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	// Nothing listens on this address.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer func() { _ = rdb.Close() }()
	n := NewNotifier(rdb, hub)

	for i := 0; i < 5; i++ {
		_ = n.PublishUser(context.Background(), "A", "n", i)
	}
	err := n.PublishUser(context.Background(), "A", "n", 6)
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Err.Error(), "circuit breaker is open")
}

func TestNotifier_DispatchIgnoresMalformedMessages(t *testing.T) {
	t.Parallel()
	hub := NewHub(HubConfig{}, nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()
	sub, err := hub.Subscribe(context.Background(), "A")
	require.NoError(t, err)
	n := NewNotifier(nil, hub)

	assert.NotPanics(t, func() {
		n.dispatch(context.Background(), UserChannel("A"), "not json")
		n.dispatch(context.Background(), "notifications:user:", `{"type":"n","payload":{}}`)
	})
	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected %s", ev.Type)
	default:
	}

	n.dispatch(context.Background(), UserChannel("A"), `{"type":"n","payload":{"ok":true}}`)
	assert.JSONEq(t, `{"ok":true}`, string(recv(t, sub).Payload))
}
