package service

import (
	"context"
	"log/slog"

	"vibeu/internal/models"
	"vibeu/internal/observability"
	"vibeu/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// excerptLen bounds the post text embedded in a notification.
const excerptLen = 120

// NotificationService derives notifications from interaction events, serves
// the recipient's list and badge, and pushes new rows to the realtime hub.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	postRepo         repository.PostRepository
	profileRepo      repository.ProfileRepository
	publisher        RealtimePublisher
	observers        []NotificationObserver
}

type ListNotificationsInput struct {
	UserID string
	Cursor string
	Limit  int
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	postRepo repository.PostRepository,
	profileRepo repository.ProfileRepository,
	publisher RealtimePublisher,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		postRepo:         postRepo,
		profileRepo:      profileRepo,
		publisher:        publisher,
	}
}

// Observe registers an observer for committed notifications. Not safe to call
// once events are flowing.
func (s *NotificationService) Observe(o NotificationObserver) {
	if o != nil {
		s.observers = append(s.observers, o)
	}
}

// HandlePostCreated broadcasts the new post so open feeds can prepend it.
func (s *NotificationService) HandlePostCreated(ctx context.Context, ev PostCreatedEvent) error {
	if s.publisher == nil || ev.Post == nil {
		return nil
	}
	return s.publisher.PublishBroadcast(ctx, models.EventPostCreated, ev.Post)
}

// HandleLikeCreated writes one like notification per like; likes are not collapsed.
func (s *NotificationService) HandleLikeCreated(ctx context.Context, ev LikeCreatedEvent) error {
	return s.generate(ctx, &models.Notification{
		RecipientID: ev.PostAuthorID,
		ActorID:     ev.UserID,
		Kind:        models.NotificationKindLike,
		PostID:      ev.PostID,
	})
}

// HandleCommentCreated writes one comment notification per comment.
func (s *NotificationService) HandleCommentCreated(ctx context.Context, ev CommentCreatedEvent) error {
	if ev.Comment == nil {
		return nil
	}
	commentID := ev.Comment.ID
	return s.generate(ctx, &models.Notification{
		RecipientID: ev.PostAuthorID,
		ActorID:     ev.Comment.AuthorID,
		Kind:        models.NotificationKindComment,
		PostID:      ev.Comment.PostID,
		CommentID:   &commentID,
	})
}

func (s *NotificationService) generate(ctx context.Context, n *models.Notification) error {
	// Self-interaction never notifies, whatever the caller did.
	if n.ActorID == n.RecipientID {
		return nil
	}

	span, ctx := observability.NewSpan(ctx, "NotificationService.generate",
		attribute.String("notification.kind", string(n.Kind)),
		attribute.String("recipient.id", n.RecipientID))
	defer span.End()

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		span.SetError(err)
		return err
	}
	observability.NotificationsCreated.WithLabelValues(string(n.Kind)).Inc()

	for _, o := range s.observers {
		if err := o.HandleNotificationCreated(ctx, n); err != nil {
			observability.EventHandlerFailures.WithLabelValues("notification_observer", EventNotificationCreated).Inc()
			observability.GlobalLogger.WarnContext(ctx, "notification observer failed",
				slog.String("notification_id", n.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.publisher == nil {
		return nil
	}
	if err := s.enrich(ctx, []*models.Notification{n}); err != nil {
		// The row is committed; clients fetch the enriched view on resync.
		observability.GlobalLogger.WarnContext(ctx, "failed to enrich notification for push",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.publisher.PublishUser(ctx, n.RecipientID, models.EventNotificationCreated, n); err != nil {
		span.SetError(err)
		return models.NewDeliveryError(err)
	}
	return nil
}

// List returns the recipient's notifications newest first with the unread badge count.
func (s *NotificationService) List(ctx context.Context, in ListNotificationsInput) (*models.NotificationPage, error) {
	after, err := repository.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}
	items, next, err := s.notificationRepo.ListByRecipient(ctx, in.UserID, after, clampLimit(in.Limit))
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, items); err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.CountUnseen(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	page := &models.NotificationPage{
		Notifications: items,
		UnreadCount:   unread,
	}
	if page.Notifications == nil {
		page.Notifications = []*models.Notification{}
	}
	if next != nil {
		page.NextCursor = next.Encode()
		page.HasMore = true
	}
	return page, nil
}

// UnreadCount returns the number of unseen notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.notificationRepo.CountUnseen(ctx, userID)
}

// MarkAllSeen marks every unseen notification of userID as seen. Repeating it
// changes nothing. Other sessions of the user are told to clear their badge.
func (s *NotificationService) MarkAllSeen(ctx context.Context, userID string) (int64, error) {
	updated, err := s.notificationRepo.MarkAllSeen(ctx, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 && s.publisher != nil {
		payload := models.NotificationsSeenPayload{Updated: updated}
		if err := s.publisher.PublishUser(ctx, userID, models.EventNotificationsSeen, payload); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to publish notifications_seen",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return updated, nil
}

func (s *NotificationService) enrich(ctx context.Context, items []*models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	actorIDs := make([]string, 0, len(items))
	postIDs := make([]string, 0, len(items))
	for _, n := range items {
		actorIDs = append(actorIDs, n.ActorID)
		postIDs = append(postIDs, n.PostID)
	}
	actors, err := s.profileRepo.GetSummaries(ctx, actorIDs)
	if err != nil {
		return err
	}
	excerpts, err := s.postRepo.GetExcerpts(ctx, postIDs, excerptLen)
	if err != nil {
		return err
	}
	for _, n := range items {
		n.Actor = actors[n.ActorID]
		n.Post = excerpts[n.PostID]
	}
	return nil
}
