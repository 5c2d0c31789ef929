package models

// Realtime event types carried in the websocket envelope.
const (
	EventNotificationCreated = "notification_created"
	EventNotificationsSeen   = "notifications_seen"
	EventPostCreated         = "post_created"
	EventResyncRequired      = "resync_required"
	EventPresenceChanged     = "presence_changed"
)

// NotificationsSeenPayload tells a recipient's other sessions to clear their badge.
type NotificationsSeenPayload struct {
	Updated     int64 `json:"updated"`
	UnreadCount int64 `json:"unread_count"`
}

// PresenceChangedPayload announces a user coming online or going offline.
type PresenceChangedPayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// OnlineUsersResponse is the presence snapshot a client loads before
// applying presence_changed events.
type OnlineUsersResponse struct {
	UserIDs []string `json:"user_ids"`
}
