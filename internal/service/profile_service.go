package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"vibeu/internal/models"
	"vibeu/internal/repository"
	"vibeu/internal/validation"

	"github.com/google/uuid"
)

// DefaultMaxAvatarBytes caps avatar uploads when no limit is configured.
const DefaultMaxAvatarBytes int64 = 5 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProfileService manages onboarding data. A profile is only ever changed by its owner.
type ProfileService struct {
	profileRepo    repository.ProfileRepository
	presence       PresenceChecker
	avatars        ObjectStore
	maxAvatarBytes int64
}

type UpsertProfileInput struct {
	UserID     string     `json:"-"`
	Name       string     `json:"name" validate:"notblank,maxrunes=100"`
	University string     `json:"university" validate:"maxrunes=200"`
	Course     string     `json:"course" validate:"maxrunes=200"`
	AvatarURL  string     `json:"avatar_url" validate:"omitempty,url,max=1024"`
	Birthdate  *time.Time `json:"birthdate"`
	Languages  []string   `json:"languages" validate:"max=3,dive,maxrunes=50"`
}

// UpdateProfileInput carries a partial edit; nil fields are left unchanged.
type UpdateProfileInput struct {
	UserID     string  `json:"-"`
	Name       *string `json:"name" validate:"omitnil,notblank,maxrunes=100"`
	University *string `json:"university" validate:"omitnil,maxrunes=200"`
	Course     *string `json:"course" validate:"omitnil,maxrunes=200"`
	AvatarURL  *string `json:"avatar_url" validate:"omitempty,url,max=1024"`
}

type UploadAvatarInput struct {
	UserID      string
	ContentType string
	Size        int64
	Body        io.Reader
}

func NewProfileService(
	profileRepo repository.ProfileRepository,
	presence PresenceChecker,
	avatars ObjectStore,
	maxAvatarBytes int64,
) *ProfileService {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = DefaultMaxAvatarBytes
	}
	return &ProfileService{
		profileRepo:    profileRepo,
		presence:       presence,
		avatars:        avatars,
		maxAvatarBytes: maxAvatarBytes,
	}
}

// Upsert completes onboarding or overwrites the onboarding fields.
func (s *ProfileService) Upsert(ctx context.Context, in UpsertProfileInput) (*models.Profile, error) {
	in.Languages = validation.NormalizeLanguages(in.Languages)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if len(in.Languages) > models.MaxProfileLanguages {
		return nil, models.NewValidationError(fmt.Sprintf("languages accepts at most %d entries", models.MaxProfileLanguages))
	}
	if in.Birthdate != nil {
		if in.Birthdate.After(time.Now()) {
			return nil, models.NewValidationError("birthdate must be in the past")
		}
		bd := in.Birthdate.UTC()
		in.Birthdate = &bd
	}

	profile := &models.Profile{
		ID:         in.UserID,
		Name:       strings.TrimSpace(in.Name),
		University: strings.TrimSpace(in.University),
		Course:     strings.TrimSpace(in.Course),
		AvatarURL:  strings.TrimSpace(in.AvatarURL),
		Birthdate:  in.Birthdate,
		Languages:  in.Languages,
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return s.Get(ctx, in.UserID)
}

// Update applies a partial edit to an existing profile.
func (s *ProfileService) Update(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.University != nil {
		fields["university"] = strings.TrimSpace(*in.University)
	}
	if in.Course != nil {
		fields["course"] = strings.TrimSpace(*in.Course)
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if len(fields) == 0 {
		return s.Get(ctx, in.UserID)
	}

	profile, err := s.profileRepo.Update(ctx, in.UserID, fields)
	if err != nil {
		return nil, err
	}
	s.markPresence(ctx, profile)
	return profile, nil
}

// Get returns a profile with its live presence flag.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.markPresence(ctx, profile)
	return profile, nil
}

// UploadAvatar stores the image in the object store and saves its public URL on the profile.
func (s *ProfileService) UploadAvatar(ctx context.Context, in UploadAvatarInput) (*models.Profile, error) {
	if s.avatars == nil {
		return nil, models.NewInternalError(errors.New("object storage is not configured"))
	}
	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(in.ContentType))]
	if !ok {
		return nil, models.NewValidationError("avatar must be a JPEG, PNG, WebP or GIF image")
	}
	if in.Size <= 0 {
		return nil, models.NewValidationError("avatar must not be empty")
	}
	if in.Size > s.maxAvatarBytes {
		return nil, models.NewValidationError(fmt.Sprintf("avatar is too large (max %d bytes)", s.maxAvatarBytes))
	}
	if _, err := s.profileRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", in.UserID, uuid.NewString(), ext)
	url, err := s.avatars.Put(ctx, key, in.ContentType, io.LimitReader(in.Body, s.maxAvatarBytes))
	if err != nil {
		return nil, models.NewTransientStoreError(fmt.Errorf("upload avatar: %w", err))
	}

	profile, err := s.profileRepo.Update(ctx, in.UserID, map[string]interface{}{"avatar_url": url})
	if err != nil {
		return nil, err
	}
	s.markPresence(ctx, profile)
	return profile, nil
}

func (s *ProfileService) markPresence(ctx context.Context, p *models.Profile) {
	if s.presence != nil && p != nil {
		p.Online = s.presence.IsOnline(ctx, p.ID)
	}
}
