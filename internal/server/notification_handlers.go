package server

import (
	"vibeu/internal/models"
	"vibeu/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
// @Summary List notifications
// @Description The caller's notifications, newest first, with the unread badge count.
// @Tags notifications
// @Produce json
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} models.NotificationPage
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page, err := s.notificationService.List(c.UserContext(), service.ListNotificationsInput{
		UserID: currentUserID(c),
		Cursor: c.Query("cursor"),
		Limit:  c.QueryInt("limit", 0),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(page)
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} object{unread_count=int}
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notificationService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// MarkNotificationsSeen handles POST /api/notifications/seen
// @Summary Mark all notifications seen
// @Description Idempotent; a repeat call reports zero updated rows.
// @Tags notifications
// @Produce json
// @Success 200 {object} models.NotificationsSeenPayload
// @Security BearerAuth
// @Router /notifications/seen [post]
func (s *Server) MarkNotificationsSeen(c *fiber.Ctx) error {
	updated, err := s.notificationService.MarkAllSeen(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.NotificationsSeenPayload{Updated: updated})
}
