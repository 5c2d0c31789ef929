package repository

import (
	"context"

	"vibeu/internal/models"

	"gorm.io/gorm"
)

// PostFilter narrows a post listing. The zero value lists every post.
type PostFilter struct {
	AuthorID string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListPage(ctx context.Context, filter PostFilter, after *Cursor, limit int) ([]*models.Post, *Cursor, error)
	GetExcerpts(ctx context.Context, ids []string, maxLen int) (map[string]*models.PostExcerpt, error)
	CountLikes(ctx context.Context, postIDs []string) (map[string]int64, error)
	CountComments(ctx context.Context, postIDs []string) (map[string]int64, error)
	GetLikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type postRepository struct {
	store
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB, opts ...Option) PostRepository {
	return &postRepository{store: newStore(db, "posts", opts)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	db, done := r.conn(ctx, "create")
	defer done()

	if err := db.Create(post).Error; err != nil {
		return r.fail(ctx, err, "create", "Post", post.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	db, done := r.conn(ctx, "get")
	defer done()

	var post models.Post
	if err := db.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, r.fail(ctx, err, "get", "Post", id)
	}
	return &post, nil
}

// ListPage returns up to limit posts newest first, plus the cursor for the next page (nil on the last page).
func (r *postRepository) ListPage(ctx context.Context, filter PostFilter, after *Cursor, limit int) ([]*models.Post, *Cursor, error) {
	db, done := r.conn(ctx, "list")
	defer done()

	q := db.Model(&models.Post{})
	if filter.AuthorID != "" {
		q = q.Where("posts.author_id = ?", filter.AuthorID)
	}

	var posts []*models.Post
	if err := keysetDesc(q, "posts", after).Limit(limit + 1).Find(&posts).Error; err != nil {
		return nil, nil, r.fail(ctx, err, "list", "Post", filter.AuthorID)
	}

	page, next := PageOf(posts, limit, func(p *models.Post) Cursor {
		return Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, next, nil
}

// GetExcerpts resolves post subjects for notifications, truncating content to maxLen runes.
func (r *postRepository) GetExcerpts(ctx context.Context, ids []string, maxLen int) (map[string]*models.PostExcerpt, error) {
	unique := uniqueStrings(ids)
	out := make(map[string]*models.PostExcerpt, len(unique))
	if len(unique) == 0 {
		return out, nil
	}

	db, done := r.conn(ctx, "excerpts")
	defer done()

	var posts []models.Post
	if err := db.Select("id", "content").Where("id IN ?", unique).Find(&posts).Error; err != nil {
		return nil, r.fail(ctx, err, "excerpts", "Post", ids)
	}
	for _, p := range posts {
		content := []rune(p.Content)
		if maxLen > 0 && len(content) > maxLen {
			content = append(content[:maxLen], '…')
		}
		out[p.ID] = &models.PostExcerpt{ID: p.ID, Content: string(content)}
	}
	return out, nil
}

type postCount struct {
	PostID string
	N      int64
}

func (r *postRepository) countBy(ctx context.Context, model interface{}, operation string, postIDs []string) (map[string]int64, error) {
	unique := uniqueStrings(postIDs)
	out := make(map[string]int64, len(unique))
	if len(unique) == 0 {
		return out, nil
	}

	db, done := r.conn(ctx, operation)
	defer done()

	var rows []postCount
	if err := db.Model(model).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", unique).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, r.fail(ctx, err, operation, "Post", postIDs)
	}
	for _, row := range rows {
		out[row.PostID] = row.N
	}
	return out, nil
}

// CountLikes returns like counts keyed by post ID; posts without likes are absent.
func (r *postRepository) CountLikes(ctx context.Context, postIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, &models.Like{}, "count_likes", postIDs)
}

// CountComments returns comment counts keyed by post ID; posts without comments are absent.
func (r *postRepository) CountComments(ctx context.Context, postIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, &models.Comment{}, "count_comments", postIDs)
}

func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	unique := uniqueStrings(postIDs)
	out := make(map[string]bool, len(unique))
	if userID == "" || len(unique) == 0 {
		return out, nil
	}

	db, done := r.conn(ctx, "liked_ids")
	defer done()

	var liked []string
	if err := db.Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, unique).
		Pluck("post_id", &liked).Error; err != nil {
		return nil, r.fail(ctx, err, "liked_ids", "Post", postIDs)
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}
