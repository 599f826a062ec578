package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/C0l0red/twitter-client/internal/config"
	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/repository"
	"github.com/C0l0red/twitter-client/internal/twitter"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testServer bundles a routed Fiber app with the server's backing stores.
type testServer struct {
	app    *fiber.App
	server *Server
}

// newTestServer wires a Server onto an isolated in-memory database. upstream
// is the base URL of a mock Twitter server; pass "" when the test never
// leaves the process.
func newTestServer(t *testing.T, upstream string) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Tweet{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		Env:                   "test",
		JWTSecret:             "test-secret-key",
		TwitterAPIKey:         "app-key",
		TwitterAPISecret:      "app-secret",
		TwitterAuthBaseURL:    upstream,
		TwitterAPIBaseURL:     upstream + "/1.1",
		TwitterTimeoutSeconds: 5,
	}

	userRepo := repository.NewUserRepository(db)
	tweetRepo := repository.NewTweetRepository(db)
	client := twitter.NewClient(cfg)

	srv := &Server{
		config:    cfg,
		db:        db,
		userRepo:  userRepo,
		tweetRepo: tweetRepo,
		engine:    twitter.NewEngine(client, userRepo),
		gateway:   twitter.NewGateway(client, userRepo, tweetRepo),
	}

	app := fiber.New()
	srv.SetupRoutes(app)

	return &testServer{app: app, server: srv}
}

// request performs a JSON round trip against the test app.
func (ts *testServer) request(t *testing.T, method, target, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 {
		// Some endpoints return lists or empty bodies; leave decoded nil then.
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// signup registers a fresh user and returns its auth token.
func (ts *testServer) signup(t *testing.T, username string) string {
	t.Helper()

	resp, body := ts.request(t, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username": username,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok, "signup response missing token")
	return token
}
