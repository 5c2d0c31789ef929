package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vibeu/internal/observability"
)

const (
	// Max connections per user
	defaultMaxConnsPerUser = 12
	// Max total connections
	defaultMaxTotalConns = 10000
	// Queued events per subscription before the oldest is dropped
	defaultSubscriberBuffer = 64
)

var (
	ErrHubClosed        = errors.New("notification hub is shutting down")
	ErrUserConnLimit    = errors.New("user connection limit reached")
	ErrServerConnLimit  = errors.New("server connection limit reached")
	errMissingRecipient = errors.New("recipient id is required")
)

// HubConfig bounds the hub. Zero values take the defaults.
type HubConfig struct {
	SubscriberBuffer int
	MaxConnsPerUser  int
	MaxTotalConns    int
}

// Hub maps recipientID -> live subscriptions on this instance. It holds no
// durable state; a recipient that is not subscribed simply misses the push.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	totalConns int
	closed     bool

	cfg      HubConfig
	presence *Presence
	log      *observability.HubLogger
}

// NewHub creates a hub. presence may be nil, in which case online state is local only.
func NewHub(cfg HubConfig, presence *Presence) *Hub {
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = defaultSubscriberBuffer
	}
	if cfg.MaxConnsPerUser <= 0 {
		cfg.MaxConnsPerUser = defaultMaxConnsPerUser
	}
	if cfg.MaxTotalConns <= 0 {
		cfg.MaxTotalConns = defaultMaxTotalConns
	}
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		cfg:      cfg,
		presence: presence,
		log:      observability.NewHubLogger("notifications"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notifications" }

// Subscribe opens a new event stream for recipientID. Each session gets its own copy of every event.
func (h *Hub) Subscribe(ctx context.Context, recipientID string) (*Subscription, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, errMissingRecipient
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.totalConns >= h.cfg.MaxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerConnLimit
	}
	m, ok := h.subs[recipientID]
	if !ok {
		m = make(map[*Subscription]struct{})
		h.subs[recipientID] = m
	}
	if len(m) >= h.cfg.MaxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserConnLimit
	}
	sub := newSubscription(h, recipientID, h.cfg.SubscriberBuffer)
	m[sub] = struct{}{}
	h.totalConns++
	sessions := len(m)
	h.mu.Unlock()

	observability.RealtimeSubscriptions.Inc()
	h.log.LogSubscribe(ctx, recipientID, sessions)
	if h.presence != nil {
		h.presence.Register(ctx, recipientID)
	}
	return sub, nil
}

// Unsubscribe removes sub and closes its stream.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	removed := false
	if m, ok := h.subs[sub.RecipientID]; ok {
		if _, exists := m[sub]; exists {
			delete(m, sub)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.subs, sub.RecipientID)
		}
	}
	h.mu.Unlock()

	sub.close()
	if !removed {
		return
	}
	observability.RealtimeSubscriptions.Dec()
	h.log.LogUnsubscribe(context.Background(), sub.RecipientID, "closed")
	if h.presence != nil {
		h.presence.Unregister(context.Background(), sub.RecipientID)
	}
}

// Publish enqueues ev on every subscription of recipientID and returns how many received it.
func (h *Hub) Publish(recipientID string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for sub := range h.subs[recipientID] {
		h.deliver(sub, ev)
		delivered++
	}
	return delivered
}

// Broadcast enqueues ev on every subscription.
func (h *Hub) Broadcast(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, subs := range h.subs {
		for sub := range subs {
			h.deliver(sub, ev)
			delivered++
		}
	}
	return delivered
}

func (h *Hub) deliver(sub *Subscription, ev Event) {
	if sub.deliver(ev) {
		observability.RealtimeDrops.WithLabelValues(h.Name(), "full").Inc()
	}
	observability.RealtimeDeliveries.WithLabelValues(ev.Type).Inc()
}

// SessionCount reports the live subscriptions of recipientID on this instance.
func (h *Hub) SessionCount(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[recipientID])
}

// IsOnline reports whether a user has at least one live session on any instance.
func (h *Hub) IsOnline(ctx context.Context, userID string) bool {
	if h.presence != nil {
		return h.presence.IsOnline(ctx, userID)
	}
	return h.SessionCount(userID) > 0
}

// Touch refreshes presence for a user whose session showed activity.
func (h *Hub) Touch(ctx context.Context, userID string) {
	if h.presence != nil {
		h.presence.Touch(ctx, userID)
	}
}

// Shutdown closes every subscription; subscribers see their channel close.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	all := make([]*Subscription, 0, h.totalConns)
	for _, subs := range h.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	for _, sub := range all {
		if sub.close() {
			observability.RealtimeSubscriptions.Dec()
		}
	}
	if h.presence != nil {
		h.presence.Stop()
	}
	h.log.LogLifecycle(ctx, "shutdown", map[string]interface{}{"closed_subscriptions": len(all)})
	return nil
}
