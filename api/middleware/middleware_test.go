package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitquest/api/ctxutil"
	"fitquest/config"
	"fitquest/domain/identity"
	"fitquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	id  *identity.VerifiedIdentity
	err error
}

func (v stubVerifier) VerifyToken(context.Context, string) (*identity.VerifiedIdentity, error) {
	return v.id, v.err
}

func serve(engine *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequestID_PropagatesToContext(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	var seen string
	engine.GET("/", func(c *gin.Context) {
		seen = logger.RequestIDFromContext(c.Request.Context())
	})

	rec := serve(engine, map[string]string{RequestIDHeader: "req-1"})
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	rec = serve(engine, nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestAuth(t *testing.T) {
	cases := []struct {
		name     string
		verifier stubVerifier
		header   string
		status   int
	}{
		{"missing header", stubVerifier{}, "", http.StatusUnauthorized},
		{"invalid token", stubVerifier{}, "Bearer bad", http.StatusUnauthorized},
		{"verifier error", stubVerifier{err: errors.New("jwks down")}, "Bearer x", http.StatusServiceUnavailable},
		{"valid", stubVerifier{id: &identity.VerifiedIdentity{Subject: "u1"}}, "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(AuthMiddleware(tc.verifier))
			var userID string
			engine.GET("/", func(c *gin.Context) { userID = ctxutil.UserID(c) })

			rec := serve(engine, map[string]string{"Authorization": tc.header})
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u1", userID)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(RateLimitMiddleware(&config.RateLimitConfig{Enabled: true, Rate: 1, Burst: 2}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(engine, nil).Code)
	assert.Equal(t, http.StatusOK, serve(engine, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(engine, nil).Code)
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestIDMiddleware(), RecoveryMiddleware())
	engine.GET("/", func(*gin.Context) { panic("boom") })

	rec := serve(engine, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORSMiddleware(&config.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Authorization"},
	}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(engine, map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(engine, map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
