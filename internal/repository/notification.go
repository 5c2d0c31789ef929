package repository

import (
	"context"

	"vibeu/internal/cache"
	"vibeu/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, after *Cursor, limit int) ([]*models.Notification, *Cursor, error)
	CountUnseen(ctx context.Context, recipientID string) (int64, error)
	MarkAllSeen(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	store
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB, opts ...Option) NotificationRepository {
	return &notificationRepository{store: newStore(db, "notifications", opts)}
}

// Create refuses self-notifications; the database carries the same CHECK constraint.
func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ActorID == n.RecipientID {
		return models.NewValidationError("notification actor and recipient must differ")
	}
	if !n.Kind.Valid() {
		return models.NewValidationError("unknown notification kind")
	}

	db, done := r.conn(ctx, "create")
	defer done()

	if err := db.Create(n).Error; err != nil {
		return r.fail(ctx, err, "create", "Notification", n.ID)
	}
	cache.InvalidateUnreadCount(ctx, n.RecipientID)
	r.log.LogCreate(ctx, map[string]interface{}{"notification_id": n.ID, "recipient_id": n.RecipientID, "kind": n.Kind})
	return nil
}

// ListByRecipient returns notifications newest first with keyset pagination.
func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, after *Cursor, limit int) ([]*models.Notification, *Cursor, error) {
	db, done := r.conn(ctx, "list")
	defer done()

	var rows []*models.Notification
	q := db.Model(&models.Notification{}).Where("notifications.recipient_id = ?", recipientID)
	if err := keysetDesc(q, "notifications", after).Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, r.fail(ctx, err, "list", "Notification", recipientID)
	}

	page, next := PageOf(rows, limit, func(n *models.Notification) Cursor {
		return Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *notificationRepository) CountUnseen(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadCountKey(recipientID), &count, cache.UnreadCountTTL, func() error {
		db, done := r.conn(ctx, "count_unseen")
		defer done()
		return db.Model(&models.Notification{}).
			Where("recipient_id = ? AND seen = ?", recipientID, false).
			Count(&count).Error
	})
	if err != nil {
		return 0, r.fail(ctx, err, "count_unseen", "Notification", recipientID)
	}
	return count, nil
}

// MarkAllSeen flips every unseen notification of the recipient. Repeating it updates zero rows.
func (r *notificationRepository) MarkAllSeen(ctx context.Context, recipientID string) (int64, error) {
	db, done := r.conn(ctx, "mark_seen")
	defer done()

	result := db.Model(&models.Notification{}).
		Where("recipient_id = ? AND seen = ?", recipientID, false).
		Update("seen", true)
	if result.Error != nil {
		return 0, r.fail(ctx, result.Error, "mark_seen", "Notification", recipientID)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	if result.RowsAffected > 0 {
		r.log.LogUpdate(ctx, map[string]interface{}{"recipient_id": recipientID, "rows": result.RowsAffected})
	}
	return result.RowsAffected, nil
}
