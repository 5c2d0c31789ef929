package service

import (
	"context"
	"strings"

	"vibeu/internal/database"
	"vibeu/internal/models"
	"vibeu/internal/observability"
	"vibeu/internal/repository"
	"vibeu/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// InteractionService creates posts and comments and toggles likes.
type InteractionService struct {
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	profileRepo repository.ProfileRepository
	events      *EventBus
}

type CreatePostInput struct {
	AuthorID string `json:"-"`
	Content  string `json:"content" validate:"notblank,maxrunes=5000"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=1024"`
}

type CreateCommentInput struct {
	PostID   string `json:"-"`
	AuthorID string `json:"-"`
	Content  string `json:"content" validate:"notblank,maxrunes=2000"`
}

func NewInteractionService(
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	profileRepo repository.ProfileRepository,
	events *EventBus,
) *InteractionService {
	return &InteractionService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		profileRepo: profileRepo,
		events:      events,
	}
}

// CreatePost persists a post and returns it with an empty like set.
func (s *InteractionService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "InteractionService.CreatePost",
		attribute.String("author.id", in.AuthorID))
	defer span.End()

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID: in.AuthorID,
		Content:  strings.TrimSpace(in.Content),
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.InteractionsTotal.WithLabelValues("post").Inc()

	authors, err := s.profileRepo.GetSummaries(ctx, []string{post.AuthorID})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	post.Author = authors[post.AuthorID]
	span.AddAttributes(attribute.String("post.id", post.ID))

	s.events.PostCreated(ctx, PostCreatedEvent{Post: post})
	return post, nil
}

// ToggleLike flips the like state of (postID, userID) and returns the
// authoritative state and count. A concurrent duplicate insert that loses the
// uniqueness race resolves as liked without error.
func (s *InteractionService) ToggleLike(ctx context.Context, postID, userID string) (*models.LikeResult, error) {
	span, ctx := observability.NewSpan(ctx, "InteractionService.ToggleLike",
		attribute.String("post.id", postID),
		attribute.String("user.id", userID))
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	exists, err := s.likeRepo.Exists(ctx, postID, userID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result := &models.LikeResult{PostID: postID}
	if exists {
		// A concurrent unlike may already have removed the row; either way it is gone.
		if _, err := s.likeRepo.Delete(ctx, postID, userID); err != nil {
			span.SetError(err)
			return nil, err
		}
		result.State = models.LikeStateUnliked
		observability.InteractionsTotal.WithLabelValues("unlike").Inc()
	} else {
		inserted, err := s.likeRepo.Insert(ctx, postID, userID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		result.State = models.LikeStateLiked
		if inserted {
			observability.InteractionsTotal.WithLabelValues("like").Inc()
			if userID != post.AuthorID {
				s.events.LikeCreated(ctx, LikeCreatedEvent{
					PostID:       postID,
					PostAuthorID: post.AuthorID,
					UserID:       userID,
					CreatedAt:    database.NowFunc(),
				})
			}
		} else {
			observability.LikeRacesResolved.Inc()
		}
	}
	result.Liked = result.State == models.LikeStateLiked

	count, err := s.likeRepo.CountByPost(ctx, postID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	result.LikesCount = count
	span.AddAttributes(attribute.String("like.state", string(result.State)))
	return result, nil
}

// CreateComment appends a comment to a post.
func (s *InteractionService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	span, ctx := observability.NewSpan(ctx, "InteractionService.CreateComment",
		attribute.String("post.id", in.PostID),
		attribute.String("author.id", in.AuthorID))
	defer span.End()

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		Content:  strings.TrimSpace(in.Content),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.InteractionsTotal.WithLabelValues("comment").Inc()

	authors, err := s.profileRepo.GetSummaries(ctx, []string{comment.AuthorID})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	comment.Author = authors[comment.AuthorID]

	if in.AuthorID != post.AuthorID {
		s.events.CommentCreated(ctx, CommentCreatedEvent{Comment: comment, PostAuthorID: post.AuthorID})
	}
	return comment, nil
}

// ListComments returns a post's comments oldest first with authors resolved in one batch.
func (s *InteractionService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	authors, err := s.profileRepo.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.Author = authors[c.AuthorID]
	}
	return comments, nil
}
