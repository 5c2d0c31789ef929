package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vibeu/internal/database"
	"vibeu/internal/models"
	"vibeu/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

type published struct {
	UserID    string
	EventType string
	Payload   interface{}
}

// recordingPublisher captures realtime pushes instead of delivering them.
type recordingPublisher struct {
	mu         sync.Mutex
	users      []published
	broadcasts []published
	err        error
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, published{UserID: userID, EventType: eventType, Payload: payload})
	return p.err
}

func (p *recordingPublisher) PublishBroadcast(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, published{EventType: eventType, Payload: payload})
	return p.err
}

func (p *recordingPublisher) userEvents(eventType string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.users {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// engine wires the services over a real SQLite store the same way cmd/server does.
type engine struct {
	db            *gorm.DB
	publisher     *recordingPublisher
	interactions  *InteractionService
	notifications *NotificationService
	feed          *FeedService
	profiles      *ProfileService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := newTestDB(t)
	postRepo := repository.NewPostRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	pub := &recordingPublisher{}
	notifications := NewNotificationService(notificationRepo, postRepo, profileRepo, pub)
	bus := NewEventBus()
	bus.Register("notifications", notifications)

	return &engine{
		db:        db,
		publisher: pub,
		interactions: NewInteractionService(
			postRepo,
			repository.NewLikeRepository(db),
			repository.NewCommentRepository(db),
			profileRepo,
			bus,
		),
		notifications: notifications,
		feed:          NewFeedService(postRepo, profileRepo),
		profiles:      NewProfileService(profileRepo, nil, nil, 0),
	}
}

func (e *engine) onboard(t *testing.T, id string) *models.Profile {
	t.Helper()
	p, err := e.profiles.Upsert(context.Background(), UpsertProfileInput{UserID: id, Name: "Name " + id, University: "Uni"})
	require.NoError(t, err)
	return p
}

func (e *engine) post(t *testing.T, authorID, content string) *models.Post {
	t.Helper()
	p, err := e.interactions.CreatePost(context.Background(), CreatePostInput{AuthorID: authorID, Content: content})
	require.NoError(t, err)
	return p
}

func (e *engine) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// assertCode asserts that err carries the given AppError code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}
