package service

import (
	"context"
	"errors"
	"testing"

	"vibeu/internal/models"
	"vibeu/internal/observability"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversToEveryHandlerDespiteFailures(t *testing.T) {
	t.Parallel()
	failing := &recordingHandler{err: errors.New("boom")}
	ok := &recordingHandler{}
	bus := NewEventBus()
	bus.Register("failing", failing)
	bus.Register("ok", ok)
	bus.Register("nil", nil)

	ctx := context.Background()
	bus.PostCreated(ctx, PostCreatedEvent{Post: &models.Post{ID: "p1"}})
	bus.LikeCreated(ctx, LikeCreatedEvent{PostID: "p1", UserID: "u"})
	bus.CommentCreated(ctx, CommentCreatedEvent{Comment: &models.Comment{ID: "c1"}})

	for _, h := range []*recordingHandler{failing, ok} {
		require.Len(t, h.posts, 1)
		require.Len(t, h.likes, 1)
		require.Len(t, h.comments, 1)
	}
	assert.Equal(t, "p1", ok.posts[0].Post.ID)
}

func TestEventBus_NilBusIsNoop(t *testing.T) {
	t.Parallel()
	var bus *EventBus
	assert.NotPanics(t, func() {
		bus.LikeCreated(context.Background(), LikeCreatedEvent{})
	})
}

func handlerFailures(t *testing.T, handler, event string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, observability.EventHandlerFailures.WithLabelValues(handler, event).Write(&m))
	return m.GetCounter().GetValue()
}

func TestEventBus_LostNotificationWriteKeepsInteraction(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.onboard(t, "A")
	e.onboard(t, "B")
	p := e.post(t, "A", "hello")

	require.NoError(t, e.db.Migrator().DropTable(&models.Notification{}))
	before := handlerFailures(t, "notifications", EventLikeCreated)

	res, err := e.interactions.ToggleLike(ctx, p.ID, "B")
	require.NoError(t, err, "the like committed, so the writer sees success")
	assert.True(t, res.Liked)
	assert.Equal(t, int64(1), res.LikesCount)
	assert.Equal(t, int64(1), e.countRows(t, &models.Like{}, "post_id = ?", p.ID))

	assert.Equal(t, before+1, handlerFailures(t, "notifications", EventLikeCreated))
	assert.Empty(t, e.publisher.userEvents(models.EventNotificationCreated))
}
