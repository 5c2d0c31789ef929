package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is append-only and ordered by creation within a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID  string    `gorm:"size:128;not null" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_comments_post_created,priority:2" json:"created_at"`

	Author *AuthorSummary `gorm:"-" json:"author"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate assigns a time-ordered identifier.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
