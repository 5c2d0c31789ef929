package repository

import (
	"context"

	"vibeu/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository owns the (post, user) like rows. Uniqueness lives in the primary key,
// so Insert and Delete report whether they changed anything instead of failing on races.
type LikeRepository interface {
	Exists(ctx context.Context, postID, userID string) (bool, error)
	Insert(ctx context.Context, postID, userID string) (bool, error)
	Delete(ctx context.Context, postID, userID string) (bool, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
}

type likeRepository struct {
	store
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB, opts ...Option) LikeRepository {
	return &likeRepository{store: newStore(db, "likes", opts)}
}

func (r *likeRepository) Exists(ctx context.Context, postID, userID string) (bool, error) {
	db, done := r.conn(ctx, "exists")
	defer done()

	var count int64
	if err := db.Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, r.fail(ctx, err, "exists", "Like", postID)
	}
	return count > 0, nil
}

// Insert uses INSERT ... ON CONFLICT DO NOTHING. inserted is false when a concurrent
// request already created the row.
func (r *likeRepository) Insert(ctx context.Context, postID, userID string) (bool, error) {
	db, done := r.conn(ctx, "insert")
	defer done()

	result := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: postID, UserID: userID})
	if result.Error != nil {
		return false, r.fail(ctx, result.Error, "insert", "Post", postID)
	}
	if result.RowsAffected > 0 {
		r.log.LogCreate(ctx, map[string]interface{}{"post_id": postID, "user_id": userID})
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the row if present. deleted is false when it was already gone.
func (r *likeRepository) Delete(ctx context.Context, postID, userID string) (bool, error) {
	db, done := r.conn(ctx, "delete")
	defer done()

	result := db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if result.Error != nil {
		return false, r.fail(ctx, result.Error, "delete", "Like", postID)
	}
	if result.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]interface{}{"post_id": postID, "user_id": userID})
	}
	return result.RowsAffected > 0, nil
}

func (r *likeRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	db, done := r.conn(ctx, "count")
	defer done()

	var count int64
	if err := db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, r.fail(ctx, err, "count", "Like", postID)
	}
	return count, nil
}
