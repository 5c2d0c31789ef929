package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is immutable after creation.
type Post struct {
	ID        string    `gorm:"primaryKey;size:36;index:idx_posts_created_id,priority:2" json:"id"`
	AuthorID  string    `gorm:"size:128;not null;index:idx_posts_author_created,priority:1" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageURL  string    `gorm:"size:1024" json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"not null;index:idx_posts_created_id,priority:1;index:idx_posts_author_created,priority:2" json:"created_at"`

	// Author is batch-resolved per page, not persisted
	Author *AuthorSummary `gorm:"-" json:"author"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"-" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"-" json:"comments_count"`
	// Liked indicates whether the requesting viewer liked this post (computed)
	Liked bool `gorm:"-" json:"liked"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate assigns a time-ordered identifier.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

// PostExcerpt is the subject post shape embedded in a notification.
type PostExcerpt struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// FeedPage is one cursor page of enriched posts.
type FeedPage struct {
	Posts      []*Post `json:"posts"`
	NextCursor string  `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}
