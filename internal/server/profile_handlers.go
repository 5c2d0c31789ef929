package server

import (
	"vibeu/internal/models"
	"vibeu/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profiles/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// UpsertMyProfile handles PUT /api/profiles/me (onboarding)
// @Summary Complete onboarding
// @Description Creates the caller's profile or replaces its onboarding fields.
// @Tags profiles
// @Accept json
// @Produce json
// @Param request body service.UpsertProfileInput true "Profile"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profiles/me [put]
func (s *Server) UpsertMyProfile(c *fiber.Ctx) error {
	var req service.UpsertProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.UserID = currentUserID(c)

	profile, err := s.profileService.Upsert(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PATCH /api/profiles/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.UserID = currentUserID(c)

	profile, err := s.profileService.Update(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// UploadMyAvatar handles POST /api/profiles/me/avatar (multipart field "avatar")
func (s *Server) UploadMyAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("avatar file is required"))
	}
	file, err := fh.Open()
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	defer func() { _ = file.Close() }()

	profile, err := s.profileService.UploadAvatar(c.UserContext(), service.UploadAvatarInput{
		UserID:      currentUserID(c),
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        file,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// GetProfile handles GET /api/profiles/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// GetProfilePosts handles GET /api/profiles/:id/posts
func (s *Server) GetProfilePosts(c *fiber.Ctx) error {
	page, err := s.feedService.GetProfileFeed(c.UserContext(), c.Params("id"), feedInput(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(page)
}
