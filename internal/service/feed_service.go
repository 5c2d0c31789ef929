package service

import (
	"context"

	"vibeu/internal/models"
	"vibeu/internal/observability"
	"vibeu/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Page size bounds for cursor listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// FeedService assembles denormalized post views. Every page costs a fixed
// number of queries regardless of its length.
type FeedService struct {
	postRepo    repository.PostRepository
	profileRepo repository.ProfileRepository
}

type FeedInput struct {
	ViewerID string
	Cursor   string
	Limit    int
}

func NewFeedService(postRepo repository.PostRepository, profileRepo repository.ProfileRepository) *FeedService {
	return &FeedService{postRepo: postRepo, profileRepo: profileRepo}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

// GetFeed returns every post newest first.
func (s *FeedService) GetFeed(ctx context.Context, in FeedInput) (*models.FeedPage, error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.GetFeed", attribute.String("viewer.id", in.ViewerID))
	defer span.End()

	page, err := s.page(ctx, repository.PostFilter{}, in)
	if err != nil {
		span.SetError(err)
	}
	return page, err
}

// GetProfileFeed returns the posts of one author newest first.
func (s *FeedService) GetProfileFeed(ctx context.Context, profileID string, in FeedInput) (*models.FeedPage, error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.GetProfileFeed",
		attribute.String("viewer.id", in.ViewerID),
		attribute.String("profile.id", profileID))
	defer span.End()

	if _, err := s.profileRepo.GetByID(ctx, profileID); err != nil {
		span.SetError(err)
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{AuthorID: profileID}, in)
	if err != nil {
		span.SetError(err)
	}
	return page, err
}

// GetPost returns one enriched post.
func (s *FeedService) GetPost(ctx context.Context, postID, viewerID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, []*models.Post{post}, viewerID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *FeedService) page(ctx context.Context, filter repository.PostFilter, in FeedInput) (*models.FeedPage, error) {
	after, err := repository.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}
	posts, next, err := s.postRepo.ListPage(ctx, filter, after, clampLimit(in.Limit))
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, posts, in.ViewerID); err != nil {
		return nil, err
	}

	page := &models.FeedPage{Posts: posts}
	if page.Posts == nil {
		page.Posts = []*models.Post{}
	}
	if next != nil {
		page.NextCursor = next.Encode()
		page.HasMore = true
	}
	return page, nil
}

// enrich resolves authors, counts and the viewer's like state for a page in
// four concurrent batch queries.
func (s *FeedService) enrich(ctx context.Context, posts []*models.Post, viewerID string) error {
	if len(posts) == 0 {
		return nil
	}
	postIDs := make([]string, 0, len(posts))
	authorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}

	var (
		authors  map[string]*models.AuthorSummary
		likes    map[string]int64
		comments map[string]int64
		liked    map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		authors, err = s.profileRepo.GetSummaries(gctx, authorIDs)
		return err
	})
	g.Go(func() (err error) {
		likes, err = s.postRepo.CountLikes(gctx, postIDs)
		return err
	})
	g.Go(func() (err error) {
		comments, err = s.postRepo.CountComments(gctx, postIDs)
		return err
	})
	if viewerID != "" {
		g.Go(func() (err error) {
			liked, err = s.postRepo.GetLikedPostIDs(gctx, viewerID, postIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range posts {
		p.Author = authors[p.AuthorID]
		p.LikesCount = likes[p.ID]
		p.CommentsCount = comments[p.ID]
		p.Liked = liked[p.ID]
	}
	return nil
}
