// Package seed populates a development database with a believable social
// graph. Everything goes through the services, so notifications are derived
// exactly as they would be from real traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vibeu/internal/middleware"
	"vibeu/internal/models"
	"vibeu/internal/repository"
	"vibeu/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var courses = []string{
	"Computer Science", "Medicine", "Law", "Architecture", "Economics",
	"Mechanical Engineering", "Psychology", "Linguistics", "Fine Arts",
}

// seededTables are cleared children first.
var seededTables = []string{"notifications", "comments", "likes", "posts", "profiles"}

// Summary reports what a run created.
type Summary struct {
	Profiles      int
	Posts         int
	Likes         int
	Comments      int
	Notifications int64
}

// Seeder drives the services with generated data.
type Seeder struct {
	db           *gorm.DB
	profiles     *service.ProfileService
	interactions *service.InteractionService
	logger       *slog.Logger
}

// NewSeeder wires the services against db with no realtime delivery.
func NewSeeder(db *gorm.DB) *Seeder {
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	events := service.NewEventBus()
	events.Register("notifications", service.NewNotificationService(notificationRepo, postRepo, profileRepo, nil))

	return &Seeder{
		db:           db,
		profiles:     service.NewProfileService(profileRepo, nil, nil, 0),
		interactions: service.NewInteractionService(postRepo, likeRepo, commentRepo, profileRepo, events),
		logger:       middleware.Logger,
	}
}

// ClearAll removes every seeded row.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec("TRUNCATE TABLE notifications, comments, likes, posts, profiles CASCADE").Error
	}
	for _, table := range seededTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Run generates profiles, then posts, then engagement between them.
func (s *Seeder) Run(ctx context.Context, p Preset) (*Summary, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)
	summary := &Summary{}

	profiles := make([]*models.Profile, 0, p.Profiles)
	for i := 0; i < p.Profiles; i++ {
		profile, err := s.profiles.Upsert(ctx, buildProfile(faker, p))
		if err != nil {
			return summary, fmt.Errorf("create profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	summary.Profiles = len(profiles)
	s.logger.Info("seeded profiles", slog.Int("count", summary.Profiles))

	posts := make([]*models.Post, 0, p.Profiles*p.PostsPerProfile)
	for _, author := range profiles {
		for i := 0; i < p.PostsPerProfile; i++ {
			post, err := s.interactions.CreatePost(ctx, buildPost(faker, author.ID))
			if err != nil {
				return summary, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, post)
		}
	}
	summary.Posts = len(posts)
	s.logger.Info("seeded posts", slog.Int("count", summary.Posts))

	for _, post := range posts {
		for _, liker := range profiles {
			if faker.Float64() >= p.LikeProbability {
				continue
			}
			res, err := s.interactions.ToggleLike(ctx, post.ID, liker.ID)
			if err != nil {
				return summary, fmt.Errorf("like post %s: %w", post.ID, err)
			}
			if res.Liked {
				summary.Likes++
			}
		}

		n := 0
		if p.MaxCommentsPerPost > 0 {
			n = faker.Number(0, p.MaxCommentsPerPost)
		}
		for i := 0; i < n; i++ {
			author := profiles[faker.Number(0, len(profiles)-1)]
			if _, err := s.interactions.CreateComment(ctx, service.CreateCommentInput{
				PostID:   post.ID,
				AuthorID: author.ID,
				Content:  faker.Sentence(faker.Number(3, 14)),
			}); err != nil {
				return summary, fmt.Errorf("comment on post %s: %w", post.ID, err)
			}
			summary.Comments++
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Count(&count).Error; err != nil {
		return summary, fmt.Errorf("count notifications: %w", err)
	}
	summary.Notifications = count

	s.logger.Info("seeded engagement",
		slog.Int("likes", summary.Likes),
		slog.Int("comments", summary.Comments),
		slog.Int64("notifications", summary.Notifications),
	)
	return summary, nil
}

func buildProfile(f *gofakeit.Faker, p Preset) service.UpsertProfileInput {
	now := time.Now()
	birthdate := f.DateRange(now.AddDate(-30, 0, 0), now.AddDate(-18, 0, 0))

	languages := append([]string(nil), p.Languages...)
	f.ShuffleStrings(languages)
	languages = languages[:f.Number(1, min(3, len(languages)))]

	return service.UpsertProfileInput{
		UserID:     "seed|" + f.UUID(),
		Name:       f.FirstName() + " " + f.LastName(),
		University: f.RandomString(p.Universities),
		Course:     f.RandomString(courses),
		AvatarURL:  fmt.Sprintf("https://picsum.photos/seed/%s/256/256", f.UUID()),
		Birthdate:  &birthdate,
		Languages:  languages,
	}
}

func buildPost(f *gofakeit.Faker, authorID string) service.CreatePostInput {
	in := service.CreatePostInput{
		AuthorID: authorID,
		Content:  f.Paragraph(1, f.Number(1, 3), 12, " "),
	}
	// roughly a third of posts carry an image
	if f.Number(0, 2) == 0 {
		in.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.UUID())
	}
	return in
}
