package repository

import (
	"context"

	"vibeu/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
}

type commentRepository struct {
	store
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB, opts ...Option) CommentRepository {
	return &commentRepository{store: newStore(db, "comments", opts)}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	db, done := r.conn(ctx, "create")
	defer done()

	if err := db.Create(comment).Error; err != nil {
		return r.fail(ctx, err, "create", "Post", comment.PostID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "post_id": comment.PostID})
	return nil
}

// ListByPost returns a post's comments oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	db, done := r.conn(ctx, "list")
	defer done()

	var comments []*models.Comment
	err := db.Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, r.fail(ctx, err, "list", "Comment", postID)
	}
	return comments, nil
}
