package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationKind enumerates the interactions that notify a post author.
type NotificationKind string

const (
	NotificationKindLike    NotificationKind = "like"
	NotificationKindComment NotificationKind = "comment"
)

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	return k == NotificationKindLike || k == NotificationKindComment
}

// Notification tells a recipient that an actor interacted with one of their posts.
// Rows where actor == recipient are never written.
type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	RecipientID string           `gorm:"size:128;not null;index:idx_notifications_recipient_created,priority:1" json:"recipient_id"`
	ActorID     string           `gorm:"size:128;not null" json:"actor_id"`
	Kind        NotificationKind `gorm:"size:16;not null" json:"kind"`
	PostID      string           `gorm:"size:36;not null;index" json:"post_id"`
	CommentID   *string          `gorm:"size:36" json:"comment_id,omitempty"`
	Seen        bool             `gorm:"not null;default:false" json:"seen"`
	CreatedAt   time.Time        `gorm:"not null;index:idx_notifications_recipient_created,priority:2" json:"created_at"`

	Actor *AuthorSummary `gorm:"-" json:"actor,omitempty"`
	Post  *PostExcerpt   `gorm:"-" json:"post,omitempty"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns a time-ordered identifier.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = NewID()
	}
	return nil
}

// NotificationPage is one cursor page of a recipient's notifications, newest first.
type NotificationPage struct {
	Notifications []*Notification `json:"notifications"`
	NextCursor    string          `json:"next_cursor,omitempty"`
	HasMore       bool            `json:"has_more"`
	UnreadCount   int64           `json:"unread_count"`
}
