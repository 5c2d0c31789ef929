package repository

import (
	"context"

	"vibeu/internal/cache"
	"vibeu/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Profile, error)
	GetSummaries(ctx context.Context, ids []string) (map[string]*models.AuthorSummary, error)
}

type profileRepository struct {
	store
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB, opts ...Option) ProfileRepository {
	return &profileRepository{store: newStore(db, "profiles", opts)}
}

// Upsert creates the profile on first onboarding and overwrites the onboarding fields afterwards.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	db, done := r.conn(ctx, "upsert")
	defer done()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "university", "course", "avatar_url", "birthdate", "languages", "updated_at", "deleted_at"}),
	}).Create(profile).Error
	if err != nil {
		return r.fail(ctx, err, "upsert", "Profile", profile.ID)
	}

	cache.InvalidateProfile(ctx, profile.ID)
	r.log.LogUpdate(ctx, map[string]interface{}{"profile_id": profile.ID})
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		db, done := r.conn(ctx, "get")
		defer done()
		return db.Where("id = ?", id).First(&profile).Error
	})
	if err != nil {
		return nil, r.fail(ctx, err, "get", "Profile", id)
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Profile, error) {
	db, done := r.conn(ctx, "update")
	defer done()

	result := db.Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, r.fail(ctx, result.Error, "update", "Profile", id)
	}
	if result.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Profile", id)
	}
	cache.InvalidateProfile(ctx, id)

	var profile models.Profile
	if err := db.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, r.fail(ctx, err, "update", "Profile", id)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"profile_id": id})
	return &profile, nil
}

// GetSummaries resolves a set of profiles in one query, keyed by ID. Duplicate IDs are collapsed.
// Deactivated profiles are still resolved so their historical content keeps an author.
func (r *profileRepository) GetSummaries(ctx context.Context, ids []string) (map[string]*models.AuthorSummary, error) {
	unique := uniqueStrings(ids)
	out := make(map[string]*models.AuthorSummary, len(unique))
	if len(unique) == 0 {
		return out, nil
	}

	db, done := r.conn(ctx, "summaries")
	defer done()

	var profiles []models.Profile
	if err := db.Unscoped().
		Select("id", "name", "university", "avatar_url").
		Where("id IN ?", unique).
		Find(&profiles).Error; err != nil {
		return nil, r.fail(ctx, err, "summaries", "Profile", ids)
	}

	for i := range profiles {
		out[profiles[i].ID] = profiles[i].Summary()
	}
	return out, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
