package server

import (
	"log/slog"

	"vibeu/internal/middleware"
	"vibeu/internal/models"
	"vibeu/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// retryAfterSeconds is advertised on TRANSIENT_STORE_ERROR responses.
const retryAfterSeconds = "1"

// statusForCode maps AppError codes to HTTP statuses.
var statusForCode = map[string]int{
	models.CodeValidation:     fiber.StatusBadRequest,
	models.CodeNotFound:       fiber.StatusNotFound,
	models.CodeConflict:       fiber.StatusConflict,
	models.CodeTransientStore: fiber.StatusServiceUnavailable,
	models.CodeDelivery:       fiber.StatusBadGateway,
	models.CodeUnauthorized:   fiber.StatusUnauthorized,
	models.CodeForbidden:      fiber.StatusForbidden,
	models.CodeInternal:       fiber.StatusInternalServerError,
}

// respondError writes err as a standardized error response. Errors without an
// AppError code are logged and reported as INTERNAL_ERROR.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	code := models.ErrorCode(err)
	status, ok := statusForCode[code]
	if !ok {
		middleware.Logger.ErrorContext(c.UserContext(), "unclassified handler error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}
	if code == models.CodeTransientStore {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return models.RespondWithError(c, status, err)
}

// currentUserID returns the authenticated principal set by the auth middleware.
func currentUserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

// feedInput reads the viewer and cursor paging parameters.
func feedInput(c *fiber.Ctx) service.FeedInput {
	return service.FeedInput{
		ViewerID: currentUserID(c),
		Cursor:   c.Query("cursor"),
		Limit:    c.QueryInt("limit", 0),
	}
}

// badBody reports an unparseable request body.
func badBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// requireUpgrade rejects plain HTTP requests on websocket routes.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
