package server

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"vibeu/internal/middleware"
	"vibeu/internal/models"
	"vibeu/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// closeTryAgainLater is the RFC 6455 close code for a server at capacity.
const closeTryAgainLater = 1013

// NotificationsWebSocket returns the handler for GET /api/ws. Each connection
// becomes one hub subscription for the authenticated user and receives
// notification_created, notifications_seen, post_created, presence_changed
// and resync_required frames.
func (s *Server) NotificationsWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" || s.hub == nil {
			_ = conn.Close()
			return
		}

		ctx := context.Background()
		if rid, ok := conn.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, middleware.RequestIDKey, rid)
		}
		ctx = context.WithValue(ctx, middleware.UserIDKey, userID)

		sub, err := s.hub.Subscribe(ctx, userID)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "websocket subscribe rejected", slog.String("error", err.Error()))
			code := websocket.CloseInternalServerErr
			if errors.Is(err, notifications.ErrUserConnLimit) || errors.Is(err, notifications.ErrServerConnLimit) {
				code = closeTryAgainLater
			} else if errors.Is(err, notifications.ErrHubClosed) {
				code = websocket.CloseGoingAway
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
			_ = conn.Close()
			return
		}

		notifications.NewClient(s.hub, conn, sub).Run()
	})
}

// GetOnlineUsers handles GET /api/presence
// @Summary Online users
// @Description Lists users with a live session on any instance. Clients apply presence_changed frames on top of it.
// @Tags realtime
// @Produce json
// @Success 200 {object} models.OnlineUsersResponse
// @Security BearerAuth
// @Router /presence [get]
func (s *Server) GetOnlineUsers(c *fiber.Ctx) error {
	ids := s.presence.OnlineUserIDs(c.UserContext())
	sort.Strings(ids)
	return c.JSON(models.OnlineUsersResponse{UserIDs: ids})
}

// announcePresence fans a presence transition out to every session.
func (s *Server) announcePresence(userID string, online bool) {
	ctx := context.Background()
	err := s.notifier.PublishBroadcast(ctx, models.EventPresenceChanged, models.PresenceChangedPayload{
		UserID: userID,
		Online: online,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "presence broadcast degraded",
			slog.String("user_id", userID),
			slog.Bool("online", online),
			slog.String("error", err.Error()),
		)
	}
}
