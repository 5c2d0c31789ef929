package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"vibeu/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := call(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	status = callJSON(t, app, http.MethodGet, "/health/ready", "", nil, &ready)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "disabled", ready.Checks["redis"])
}

func TestAPIRequiresAuthentication(t *testing.T) {
	_, app := newTestServer(t)

	for _, path := range []string{"/api/feed", "/api/notifications", "/api/profiles/me"} {
		status, _ := call(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileOnboardingAndPartialUpdate(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := call(t, app, http.MethodGet, "/api/profiles/me", "amara", nil)
	assert.Equal(t, http.StatusNotFound, status)

	var profile models.Profile
	status = callJSON(t, app, http.MethodPut, "/api/profiles/me", "amara", map[string]interface{}{
		"name":       "Amara",
		"university": "Lagos",
		"languages":  []string{"English", "english", "Yoruba"},
	}, &profile)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "amara", profile.ID)
	assert.Equal(t, []string{"English", "Yoruba"}, profile.Languages)

	status = callJSON(t, app, http.MethodPatch, "/api/profiles/me", "amara", map[string]interface{}{
		"course": "Physics",
	}, &profile)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Amara", profile.Name)
	assert.Equal(t, "Physics", profile.Course)

	var other models.Profile
	status = callJSON(t, app, http.MethodGet, "/api/profiles/amara", "ben", nil, &other)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Physics", other.Course)
}

func TestProfileValidationError(t *testing.T) {
	_, app := newTestServer(t)

	var errResp models.ErrorResponse
	status := callJSON(t, app, http.MethodPut, "/api/profiles/me", "amara", map[string]interface{}{
		"name": "   ",
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, errResp.Code)
}

func TestCreatePost(t *testing.T) {
	_, app := newTestServer(t)
	onboard(t, app, "author")

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{"Success", map[string]string{"content": "hello campus"}, http.StatusCreated},
		{"Blank content", map[string]string{"content": "  "}, http.StatusBadRequest},
		{"Bad image URL", map[string]string{"content": "x", "image_url": "not a url"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/api/posts", "author", tt.body)
			assert.Equal(t, tt.expectedStatus, status, "body: %s", body)
		})
	}
}

func TestCreatePost_InvalidBody(t *testing.T) {
	_, app := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, "author"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLikeCommentAndNotificationFlow(t *testing.T) {
	_, app := newTestServer(t)
	onboard(t, app, "author")
	onboard(t, app, "fan")

	var post models.Post
	require.Equal(t, http.StatusCreated, callJSON(t, app, http.MethodPost, "/api/posts", "author",
		map[string]string{"content": "first post"}, &post))

	var like models.LikeResult
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/like", "fan", nil, &like))
	assert.True(t, like.Liked)
	assert.Equal(t, int64(1), like.LikesCount)

	var comment models.Comment
	require.Equal(t, http.StatusCreated, callJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/comments", "fan",
		map[string]string{"content": "nice"}, &comment))
	assert.Equal(t, "fan", comment.AuthorID)

	var comments []models.Comment
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/posts/"+post.ID+"/comments", "author", nil, &comments))
	require.Len(t, comments, 1)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "Name fan", comments[0].Author.Name)

	var viewed models.Post
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/posts/"+post.ID, "fan", nil, &viewed))
	assert.True(t, viewed.Liked)
	assert.Equal(t, int64(1), viewed.LikesCount)
	assert.Equal(t, int64(1), viewed.CommentsCount)

	var page models.NotificationPage
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/notifications", "author", nil, &page))
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(2), page.UnreadCount)
	assert.Equal(t, models.NotificationKindComment, page.Notifications[0].Kind)
	assert.Equal(t, models.NotificationKindLike, page.Notifications[1].Kind)

	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/notifications/unread-count", "author", nil, &unread))
	assert.Equal(t, int64(2), unread.UnreadCount)

	var seen models.NotificationsSeenPayload
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodPost, "/api/notifications/seen", "author", nil, &seen))
	assert.Equal(t, int64(2), seen.Updated)
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodPost, "/api/notifications/seen", "author", nil, &seen))
	assert.Zero(t, seen.Updated)

	// The fan's own actions never notify the fan.
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/notifications", "fan", nil, &page))
	assert.Empty(t, page.Notifications)

	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/like", "fan", nil, &like))
	assert.False(t, like.Liked)
	assert.Zero(t, like.LikesCount)
}

func TestFeedAndProfilePostsPaginate(t *testing.T) {
	_, app := newTestServer(t)
	onboard(t, app, "author")
	onboard(t, app, "other")

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, callJSON(t, app, http.MethodPost, "/api/posts", "author",
			map[string]string{"content": "post"}, nil))
	}
	require.Equal(t, http.StatusCreated, callJSON(t, app, http.MethodPost, "/api/posts", "other",
		map[string]string{"content": "other post"}, nil))

	var first models.FeedPage
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/feed?limit=3", "viewer", nil, &first))
	require.Len(t, first.Posts, 3)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	var second models.FeedPage
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/feed?limit=3&cursor="+first.NextCursor, "viewer", nil, &second))
	require.Len(t, second.Posts, 1)
	assert.False(t, second.HasMore)

	var own models.FeedPage
	require.Equal(t, http.StatusOK, callJSON(t, app, http.MethodGet, "/api/profiles/author/posts", "viewer", nil, &own))
	assert.Len(t, own.Posts, 3)
	for _, p := range own.Posts {
		assert.Equal(t, "author", p.AuthorID)
	}

	status, _ := call(t, app, http.MethodGet, "/api/feed?cursor=%25%25bad", "viewer", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/profiles/nobody/posts", "viewer", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnknownPostIsNotFound(t *testing.T) {
	_, app := newTestServer(t)
	onboard(t, app, "fan")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/posts/missing"},
		{http.MethodPost, "/api/posts/missing/like"},
		{http.MethodGet, "/api/posts/missing/comments"},
	} {
		var errResp models.ErrorResponse
		status := callJSON(t, app, tc.method, tc.path, "fan", nil, &errResp)
		assert.Equal(t, http.StatusNotFound, status, tc.path)
		assert.Equal(t, models.CodeNotFound, errResp.Code, tc.path)
	}
}

type memoryObjectStore struct {
	keys []string
}

func (m *memoryObjectStore) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://cdn.test/" + key, nil
}

func avatarRequest(t *testing.T, subject, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/me/avatar", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, subject))
	return req
}

func TestUploadAvatar(t *testing.T) {
	store := &memoryObjectStore{}
	_, app := newTestServer(t, WithAvatarStore(store))
	onboard(t, app, "amara")

	resp, err := app.Test(avatarRequest(t, "amara", "image/png", []byte("\x89PNG fake")))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile models.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	require.Len(t, store.keys, 1)
	assert.Equal(t, "https://cdn.test/"+store.keys[0], profile.AvatarURL)

	resp, err = app.Test(avatarRequest(t, "amara", "text/plain", []byte("hello")))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRespondError_StatusMapping(t *testing.T) {
	s := &Server{}
	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter string
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest, ""},
		{"not found", models.NewNotFoundError("Post", "p1"), http.StatusNotFound, ""},
		{"conflict", models.NewConflictError("dup", nil), http.StatusConflict, ""},
		{"transient", models.NewTransientStoreError(errors.New("timeout")), http.StatusServiceUnavailable, "1"},
		{"delivery", models.NewDeliveryError(errors.New("redis down")), http.StatusBadGateway, ""},
		{"forbidden", models.NewForbiddenError("no"), http.StatusForbidden, ""},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return s.respondError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.retryAfter, resp.Header.Get("Retry-After"))
		})
	}
}

func TestRespondError_HidesInternalCause(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return s.respondError(c, models.NewTransientStoreError(errors.New("dial tcp 10.0.0.5:5432")))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeTransientStore, body.Code)
	assert.Empty(t, body.Details)
}
