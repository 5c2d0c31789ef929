package repository

import (
	"fmt"
	"testing"
	"time"

	"vibeu/internal/database"
	"vibeu/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an isolated in-memory SQLite database with the full schema.
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

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedProfile(t *testing.T, db *gorm.DB, id string) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: id, Name: "Name " + id, University: "Uni", AvatarURL: "https://cdn.example/" + id + ".png"}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedPost(t *testing.T, db *gorm.DB, authorID string, offset time.Duration) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Content: "post by " + authorID, CreatedAt: baseTime.Add(offset)}
	require.NoError(t, db.Create(p).Error)
	return p
}
