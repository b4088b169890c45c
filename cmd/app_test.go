package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fitquest/config"
	"fitquest/domain/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, dbType string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	cfg.App.Env = "test"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Server.RateLimit.Enabled = false
	cfg.Database.Type = dbType
	cfg.Database.Path = filepath.Join(t.TempDir(), "fitquest.db")
	cfg.Database.AutoMigrate = true
	cfg.Database.LogLevel = "silent"
	cfg.Redis.Addr = ""
	cfg.League.LockBackend = "memory"
	cfg.Notification.Sender = "logging"
	return cfg
}

type client struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.engine.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func newClient(t *testing.T, c *Container, userID string) *client {
	t.Helper()
	app, err := NewApp(c, false)
	require.NoError(t, err)
	token, err := c.Verifier.IssueToken(userID, userID+"@example.com", "User "+userID, c.Config.Auth.Issuer, time.Hour, time.Now())
	require.NoError(t, err)
	return &client{t: t, engine: app.router.GetEngine(), token: token}
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data: %v", body)
	return d
}

// 注册、授权、入房、得分，联赛积分随事件更新
func TestEndToEnd(t *testing.T) {
	for _, dbType := range []string{"memory", "sqlite"} {
		t.Run(dbType, func(t *testing.T) {
			c, err := Build(context.Background(), testConfig(t, dbType))
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })
			cl := newClient(t, c, "u1")

			code, _ := cl.do(http.MethodPost, "/api/v1/users/register", map[string]any{})
			require.Equal(t, http.StatusCreated, code)

			code, body := cl.do(http.MethodPost, "/api/v1/points", map[string]any{"points": 10, "source": "workout"})
			require.Equal(t, http.StatusForbidden, code)
			assert.Equal(t, "PERMISSION_NOT_GRANTED", body["error"])

			code, _ = cl.do(http.MethodPost, "/api/v1/users/me/permissions", map[string]any{"scope": "workouts"})
			require.Equal(t, http.StatusOK, code)

			code, _ = cl.do(http.MethodPost, "/api/v1/league/join", map[string]any{"room_id": "room-1"})
			require.Equal(t, http.StatusCreated, code)
			code, body = cl.do(http.MethodPost, "/api/v1/league/join", map[string]any{"room_id": "room-2"})
			require.Equal(t, http.StatusConflict, code)
			assert.Equal(t, "ALREADY_JOINED", body["error"])

			for _, pts := range []int{40, 15} {
				code, _ = cl.do(http.MethodPost, "/api/v1/points", map[string]any{"points": pts, "source": "workout"})
				require.Equal(t, http.StatusOK, code)
			}

			code, body = cl.do(http.MethodGet, "/api/v1/league/me", nil)
			require.Equal(t, http.StatusOK, code)
			assert.EqualValues(t, 55, data(t, body)["points_in_room"])

			code, body = cl.do(http.MethodGet, "/api/v1/league/rooms/room-1/standings", nil)
			require.Equal(t, http.StatusOK, code)
			standings := data(t, body)["standings"].([]any)
			require.Len(t, standings, 1)
			assert.EqualValues(t, 1, standings[0].(map[string]any)["rank"])

			code, body = cl.do(http.MethodGet, "/api/v1/points/me", nil)
			require.Equal(t, http.StatusOK, code)
			assert.EqualValues(t, 55, data(t, body)["total_points"])
		})
	}
}

func TestAuthRequired(t *testing.T) {
	c, err := Build(context.Background(), testConfig(t, "memory"))
	require.NoError(t, err)
	cl := newClient(t, c, "u1")

	cl.token = ""
	code, body := cl.do(http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["error"])

	cl.token = "garbage"
	code, _ = cl.do(http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthAndMetrics(t *testing.T) {
	c, err := Build(context.Background(), testConfig(t, "sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	cl := newClient(t, c, "u1")

	code, body := cl.do(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["checks"], "database")

	code, _ = cl.do(http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = cl.do(http.MethodPost, "/api/v1/users/register", map[string]any{})
	require.Equal(t, http.StatusCreated, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	cl.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fitquest_events_published_total")
	assert.Contains(t, rec.Body.String(), "fitquest_uow_commits_total")
}

func TestBuild_DispatcherKnowsEveryEvent(t *testing.T) {
	c, err := Build(context.Background(), testConfig(t, "memory"))
	require.NoError(t, err)

	for _, et := range []shared.EventType{
		"identity.user_created",
		"identity.health_permission_granted",
		"gamification.user_points_earned",
		"gamification.streak_lost",
	} {
		_, err := c.Dispatcher.Decode(et, []byte(`{}`))
		assert.NoError(t, err, et)
	}
	assert.Equal(t, []string{"competition.league_points"}, c.Dispatcher.HandlerNames("gamification.user_points_earned"))
}

func TestBuild_RedisLockWithoutRedisFails(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.League.LockBackend = "redis"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}
