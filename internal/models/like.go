package models

import "time"

// Like is keyed by (post, user); the composite primary key is the uniqueness guarantee.
type Like struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:128;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string {
	return "likes"
}

// LikeState is the post-toggle state of a (post, user) pair.
type LikeState string

const (
	LikeStateLiked   LikeState = "liked"
	LikeStateUnliked LikeState = "unliked"
)

// LikeResult is the authoritative outcome of a toggle for client reconciliation.
type LikeResult struct {
	PostID     string    `json:"post_id"`
	State      LikeState `json:"state"`
	Liked      bool      `json:"liked"`
	LikesCount int64     `json:"likes_count"`
}
