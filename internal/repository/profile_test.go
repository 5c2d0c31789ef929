package repository

import (
	"context"
	"testing"

	"vibeu/internal/cache"
	"vibeu/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_UpsertCreatesThenUpdates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)

	p := &models.Profile{ID: "sub-1", Name: "Ada", University: "MIT", Languages: []string{"en", "fr"}}
	require.NoError(t, repo.Upsert(ctx, p))

	p2 := &models.Profile{ID: "sub-1", Name: "Ada L.", University: "MIT", Course: "CS", Languages: []string{"en"}}
	require.NoError(t, repo.Upsert(ctx, p2))

	got, err := repo.GetByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "CS", got.Course)
	assert.Equal(t, []string{"en"}, got.Languages)

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProfileRepository_GetByID_NotFound(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	_, err := repo.GetByID(context.Background(), "ghost")
	assert.True(t, models.IsNotFound(err))
}

func TestProfileRepository_UpdateInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	cache.SetClient(client)
	t.Cleanup(func() { cache.SetClient(nil) })

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)
	seedProfile(t, db, "u1")

	_, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ProfileKey("u1")))

	updated, err := repo.Update(ctx, "u1", map[string]interface{}{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, mr.Exists(cache.ProfileKey("u1")))

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestProfileRepository_UpdateMissing(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	_, err := repo.Update(context.Background(), "ghost", map[string]interface{}{"name": "x"})
	assert.True(t, models.IsNotFound(err))
}

func TestProfileRepository_GetSummaries_SingleQueryDedup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)
	seedProfile(t, db, "a")
	seedProfile(t, db, "b")

	got, err := repo.GetSummaries(ctx, []string{"a", "b", "a", "", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Name a", got["a"].Name)
	assert.Equal(t, "Uni", got["b"].University)

	empty, err := repo.GetSummaries(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
