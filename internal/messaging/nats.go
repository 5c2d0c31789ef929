// Package messaging exports domain events to NATS for downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vibeu/internal/models"
	"vibeu/internal/observability"
	"vibeu/internal/service"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix namespaces every exported subject.
const SubjectPrefix = "vibeu."

// Subject returns the NATS subject for a domain event name.
func Subject(event string) string {
	return SubjectPrefix + event
}

// Exporter publishes domain events as JSON. A nil *Exporter, or one without a
// connection, drops events silently so NATS stays optional.
type Exporter struct {
	nc *nats.Conn
}

// Connect dials NATS with reconnects enabled and returns an Exporter.
func Connect(url string) (*Exporter, error) {
	nc, err := nats.Connect(url,
		nats.Name("vibeu-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				observability.GlobalLogger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			observability.GlobalLogger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewExporter(nc), nil
}

// NewExporter wraps an existing connection.
func NewExporter(nc *nats.Conn) *Exporter {
	return &Exporter{nc: nc}
}

// Close drains buffered events and closes the connection.
func (e *Exporter) Close() {
	if e == nil || e.nc == nil {
		return
	}
	if err := e.nc.Drain(); err != nil {
		e.nc.Close()
	}
}

func (e *Exporter) publish(ctx context.Context, event string, v interface{}) error {
	if e == nil || e.nc == nil {
		return nil
	}
	subject := Subject(event)
	data, err := json.Marshal(v)
	if err == nil {
		err = e.nc.Publish(subject, data)
	}
	if err != nil {
		observability.EventsExported.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("export %s: %w", subject, err)
	}
	observability.EventsExported.WithLabelValues(subject, "ok").Inc()
	observability.GlobalLogger.DebugContext(ctx, "event exported", slog.String("subject", subject))
	return nil
}

func (e *Exporter) HandlePostCreated(ctx context.Context, ev service.PostCreatedEvent) error {
	return e.publish(ctx, service.EventPostCreated, ev)
}

func (e *Exporter) HandleLikeCreated(ctx context.Context, ev service.LikeCreatedEvent) error {
	return e.publish(ctx, service.EventLikeCreated, ev)
}

func (e *Exporter) HandleCommentCreated(ctx context.Context, ev service.CommentCreatedEvent) error {
	return e.publish(ctx, service.EventCommentCreated, ev)
}

func (e *Exporter) HandleNotificationCreated(ctx context.Context, n *models.Notification) error {
	return e.publish(ctx, service.EventNotificationCreated, n)
}
