package service

import (
	"context"

	"vibeu/internal/models"
	"vibeu/internal/repository"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, string) (*models.Post, error)
	listPageFn        func(context.Context, repository.PostFilter, *repository.Cursor, int) ([]*models.Post, *repository.Cursor, error)
	getExcerptsFn     func(context.Context, []string, int) (map[string]*models.PostExcerpt, error)
	countLikesFn      func(context.Context, []string) (map[string]int64, error)
	countCommentsFn   func(context.Context, []string) (map[string]int64, error)
	getLikedPostIDsFn func(context.Context, string, []string) (map[string]bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListPage(ctx context.Context, filter repository.PostFilter, after *repository.Cursor, limit int) ([]*models.Post, *repository.Cursor, error) {
	return s.listPageFn(ctx, filter, after, limit)
}
func (s *postRepoStub) GetExcerpts(ctx context.Context, ids []string, maxLen int) (map[string]*models.PostExcerpt, error) {
	return s.getExcerptsFn(ctx, ids, maxLen)
}
func (s *postRepoStub) CountLikes(ctx context.Context, ids []string) (map[string]int64, error) {
	return s.countLikesFn(ctx, ids)
}
func (s *postRepoStub) CountComments(ctx context.Context, ids []string) (map[string]int64, error) {
	return s.countCommentsFn(ctx, ids)
}
func (s *postRepoStub) GetLikedPostIDs(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	return s.getLikedPostIDsFn(ctx, userID, ids)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = "p-new"
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: "author"}, nil
		},
		listPageFn: func(_ context.Context, _ repository.PostFilter, _ *repository.Cursor, _ int) ([]*models.Post, *repository.Cursor, error) {
			return nil, nil, nil
		},
		getExcerptsFn: func(_ context.Context, _ []string, _ int) (map[string]*models.PostExcerpt, error) {
			return map[string]*models.PostExcerpt{}, nil
		},
		countLikesFn:      func(_ context.Context, _ []string) (map[string]int64, error) { return map[string]int64{}, nil },
		countCommentsFn:   func(_ context.Context, _ []string) (map[string]int64, error) { return map[string]int64{}, nil },
		getLikedPostIDsFn: func(_ context.Context, _ string, _ []string) (map[string]bool, error) { return map[string]bool{}, nil },
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	existsFn      func(context.Context, string, string) (bool, error)
	insertFn      func(context.Context, string, string) (bool, error)
	deleteFn      func(context.Context, string, string) (bool, error)
	countByPostFn func(context.Context, string) (int64, error)
}

func (s *likeRepoStub) Exists(ctx context.Context, postID, userID string) (bool, error) {
	return s.existsFn(ctx, postID, userID)
}
func (s *likeRepoStub) Insert(ctx context.Context, postID, userID string) (bool, error) {
	return s.insertFn(ctx, postID, userID)
}
func (s *likeRepoStub) Delete(ctx context.Context, postID, userID string) (bool, error) {
	return s.deleteFn(ctx, postID, userID)
}
func (s *likeRepoStub) CountByPost(ctx context.Context, postID string) (int64, error) {
	return s.countByPostFn(ctx, postID)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		existsFn:      func(_ context.Context, _, _ string) (bool, error) { return false, nil },
		insertFn:      func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		deleteFn:      func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		countByPostFn: func(_ context.Context, _ string) (int64, error) { return 1, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, string) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = "c-new"
			return nil
		},
		listByPostFn: func(_ context.Context, _ string) ([]*models.Comment, error) { return nil, nil },
	}
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	upsertFn       func(context.Context, *models.Profile) error
	getByIDFn      func(context.Context, string) (*models.Profile, error)
	updateFn       func(context.Context, string, map[string]interface{}) (*models.Profile, error)
	getSummariesFn func(context.Context, []string) (map[string]*models.AuthorSummary, error)
}

func (s *profileRepoStub) Upsert(ctx context.Context, p *models.Profile) error {
	return s.upsertFn(ctx, p)
}
func (s *profileRepoStub) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.getByIDFn(ctx, id)
}
func (s *profileRepoStub) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Profile, error) {
	return s.updateFn(ctx, id, fields)
}
func (s *profileRepoStub) GetSummaries(ctx context.Context, ids []string) (map[string]*models.AuthorSummary, error) {
	return s.getSummariesFn(ctx, ids)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		upsertFn: func(_ context.Context, _ *models.Profile) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Profile, error) {
			return &models.Profile{ID: id, Name: "Name " + id}, nil
		},
		updateFn: func(_ context.Context, id string, _ map[string]interface{}) (*models.Profile, error) {
			return &models.Profile{ID: id}, nil
		},
		getSummariesFn: func(_ context.Context, ids []string) (map[string]*models.AuthorSummary, error) {
			out := make(map[string]*models.AuthorSummary, len(ids))
			for _, id := range ids {
				out[id] = &models.AuthorSummary{ID: id, Name: "Name " + id}
			}
			return out, nil
		},
	}
}

// recordingHandler is an EventHandler that records what it saw.
type recordingHandler struct {
	posts    []PostCreatedEvent
	likes    []LikeCreatedEvent
	comments []CommentCreatedEvent
	err      error
}

func (h *recordingHandler) HandlePostCreated(_ context.Context, ev PostCreatedEvent) error {
	h.posts = append(h.posts, ev)
	return h.err
}
func (h *recordingHandler) HandleLikeCreated(_ context.Context, ev LikeCreatedEvent) error {
	h.likes = append(h.likes, ev)
	return h.err
}
func (h *recordingHandler) HandleCommentCreated(_ context.Context, ev CommentCreatedEvent) error {
	h.comments = append(h.comments, ev)
	return h.err
}

func busWith(h EventHandler) *EventBus {
	bus := NewEventBus()
	bus.Register("recorder", h)
	return bus
}
