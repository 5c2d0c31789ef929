package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"vibeu/internal/models"
	"vibeu/internal/observability"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
	breakerName       = "redis-notifier"
)

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// Notifier publishes realtime events. With Redis every instance receives
// every event and delivers it to its own subscribers; without Redis events go
// straight to the local hub. If the subscription cannot be established the
// Notifier degrades to local delivery, since nothing would read from Redis.
type Notifier struct {
	rdb     *redis.Client
	local   atomic.Bool
	hub     *Hub
	breaker *gobreaker.CircuitBreaker[interface{}]
	log     *observability.HubLogger
}

// NewNotifier creates a Notifier. rdb may be nil for single-instance deployments.
func NewNotifier(rdb *redis.Client, hub *Hub) *Notifier {
	n := &Notifier{
		rdb: rdb,
		hub: hub,
		log: observability.NewHubLogger("redis-notifier"),
	}
	n.breaker = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerTransitions.WithLabelValues(name, to.String()).Inc()
			n.log.LogLifecycle(context.Background(), "circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return n
}

// PublishUser sends an event to every session of userID across instances.
// When Redis cannot take the event it is still delivered to local sessions
// and a DeliveryError is returned for logging.
func (n *Notifier) PublishUser(ctx context.Context, userID, eventType string, payload interface{}) error {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		return models.NewDeliveryError(err)
	}
	if n.localOnly() {
		n.hub.Publish(userID, ev)
		return nil
	}
	if err := n.publish(ctx, UserChannel(userID), ev); err != nil {
		n.hub.Publish(userID, ev)
		n.log.LogError(ctx, userID, err, eventType)
		return models.NewDeliveryError(err)
	}
	return nil
}

// PublishBroadcast sends an event to every connected session.
func (n *Notifier) PublishBroadcast(ctx context.Context, eventType string, payload interface{}) error {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		return models.NewDeliveryError(err)
	}
	if n.localOnly() {
		n.hub.Broadcast(ev)
		return nil
	}
	if err := n.publish(ctx, broadcastChannel, ev); err != nil {
		n.hub.Broadcast(ev)
		n.log.LogError(ctx, "*", err, eventType)
		return models.NewDeliveryError(err)
	}
	return nil
}

func (n *Notifier) localOnly() bool {
	return n.rdb == nil || n.local.Load()
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = n.breaker.Execute(func() (interface{}, error) {
		return nil, n.rdb.Publish(ctx, channel, data).Err()
	})
	return err
}

// Start subscribes to the notification channels and forwards every message to
// the local hub until ctx is cancelled. It returns once the subscription is live.
// On error the Notifier switches to local delivery for its lifetime.
func (n *Notifier) Start(ctx context.Context) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		n.local.Store(true)
		return fmt.Errorf("subscribe notification channels: %w", err)
	}
	n.local.Store(false)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				n.dispatch(ctx, msg.Channel, msg.Payload)
			}
		}
	}()
	return nil
}

func (n *Notifier) dispatch(ctx context.Context, channel, payload string) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.ErrorContext(ctx, "panic in notification subscriber",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		n.log.LogError(ctx, "", err, "decode")
		return
	}
	if channel == broadcastChannel {
		n.hub.Broadcast(ev)
		return
	}
	userID, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok || userID == "" {
		observability.GlobalLogger.WarnContext(ctx, "invalid notification channel", slog.String("channel", channel))
		return
	}
	n.hub.Publish(userID, ev)
}
