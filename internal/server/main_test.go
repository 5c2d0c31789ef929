package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vibeu/internal/config"
	"vibeu/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		Env:                 "test",
		JWTSecret:           testSecret,
		StoreTimeoutMS:      5000,
		HubSubscriberBuffer: 16,
		HubMaxConnsPerUser:  2,
		HubMaxTotalConns:    100,
		AvatarMaxSizeMB:     1,
	}
}

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

// newTestServer wires a Server over SQLite without Redis, NATS or S3.
func newTestServer(t *testing.T, opts ...Option) (*Server, *fiber.App) {
	t.Helper()
	s, err := NewServerWithDeps(testConfig(), newTestDB(t), nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.hub.Shutdown(context.Background()) })
	return s, s.NewApp()
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// call performs a request as subject (anonymous when empty) and returns the status and body.
func call(t *testing.T, app *fiber.App, method, path, subject string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, subject))
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

// callJSON is call plus decoding of the response body into out.
func callJSON(t *testing.T, app *fiber.App, method, path, subject string, body, out interface{}) int {
	t.Helper()
	status, raw := call(t, app, method, path, subject, body)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return status
}

func onboard(t *testing.T, app *fiber.App, subject string) {
	t.Helper()
	status, body := call(t, app, http.MethodPut, "/api/profiles/me", subject, map[string]interface{}{
		"name":       "Name " + subject,
		"university": "Uni",
	})
	require.Equal(t, http.StatusOK, status, "body: %s", body)
}
