// Package service holds the business logic between the HTTP layer and the store.
package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"vibeu/internal/models"
	"vibeu/internal/observability"
)

// Domain event names, used as metric labels and export subjects.
const (
	EventPostCreated         = "post.created"
	EventLikeCreated         = "like.created"
	EventCommentCreated      = "comment.created"
	EventNotificationCreated = "notification.created"
)

// PostCreatedEvent is emitted after a post is committed.
type PostCreatedEvent struct {
	Post *models.Post `json:"post"`
}

// LikeCreatedEvent is emitted after a like row is inserted, never for a lost race.
type LikeCreatedEvent struct {
	PostID       string    `json:"post_id"`
	PostAuthorID string    `json:"post_author_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CommentCreatedEvent is emitted after a comment is committed.
type CommentCreatedEvent struct {
	Comment      *models.Comment `json:"comment"`
	PostAuthorID string          `json:"post_author_id"`
}

// EventHandler consumes domain events. Handlers run after the write has
// committed, so a returned error never rolls anything back.
type EventHandler interface {
	HandlePostCreated(ctx context.Context, ev PostCreatedEvent) error
	HandleLikeCreated(ctx context.Context, ev LikeCreatedEvent) error
	HandleCommentCreated(ctx context.Context, ev CommentCreatedEvent) error
}

// NotificationObserver is told about every committed notification.
type NotificationObserver interface {
	HandleNotificationCreated(ctx context.Context, n *models.Notification) error
}

// RealtimePublisher pushes events to connected sessions.
type RealtimePublisher interface {
	PublishUser(ctx context.Context, userID, eventType string, payload interface{}) error
	PublishBroadcast(ctx context.Context, eventType string, payload interface{}) error
}

// PresenceChecker reports whether a user has a live session.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID string) bool
}

// ObjectStore stores a blob under key and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type namedHandler struct {
	name    string
	handler EventHandler
}

// EventBus fans domain events out to registered handlers in registration order.
// Handler failures are logged and counted; they are never returned to the writer.
type EventBus struct {
	mu       sync.RWMutex
	handlers []namedHandler
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Register adds a handler under a name used in logs and metrics.
func (b *EventBus) Register(name string, h EventHandler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, namedHandler{name: name, handler: h})
	b.mu.Unlock()
}

func (b *EventBus) snapshot() []namedHandler {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]namedHandler(nil), b.handlers...)
}

func (b *EventBus) dispatch(ctx context.Context, event string, call func(EventHandler) error) {
	for _, h := range b.snapshot() {
		if err := call(h.handler); err != nil {
			observability.EventHandlerFailures.WithLabelValues(h.name, event).Inc()
			observability.GlobalLogger.WarnContext(ctx, "event handler failed",
				slog.String("handler", h.name),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}
}

// PostCreated delivers ev to every handler.
func (b *EventBus) PostCreated(ctx context.Context, ev PostCreatedEvent) {
	b.dispatch(ctx, EventPostCreated, func(h EventHandler) error { return h.HandlePostCreated(ctx, ev) })
}

// LikeCreated delivers ev to every handler.
func (b *EventBus) LikeCreated(ctx context.Context, ev LikeCreatedEvent) {
	b.dispatch(ctx, EventLikeCreated, func(h EventHandler) error { return h.HandleLikeCreated(ctx, ev) })
}

// CommentCreated delivers ev to every handler.
func (b *EventBus) CommentCreated(ctx context.Context, ev CommentCreatedEvent) {
	b.dispatch(ctx, EventCommentCreated, func(h EventHandler) error { return h.HandleCommentCreated(ctx, ev) })
}
