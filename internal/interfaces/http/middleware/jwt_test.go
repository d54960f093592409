package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/quotefinance/internal/infrastructure/auth"
	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/erp/quotefinance/internal/infrastructure/logger"
	"github.com/erp/quotefinance/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *auth.TokenParser {
	return auth.NewTokenParser(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
}

func newJWTRouter(parser TokenParser, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(JWTAuthMiddleware(JWTMiddlewareConfig{
		Parser:    parser,
		SkipPaths: []string{"/health"},
	}))
	router.GET("/test", handler)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	parser := newTestParser()
	userID := uuid.New()
	token, err := parser.Issue(userID, "Finance Lead", true, time.Hour)
	require.NoError(t, err)

	var actor Actor
	var ctxActor string
	router := newJWTRouter(parser, func(c *gin.Context) {
		var ok bool
		actor, ok = GetActor(c)
		assert.True(t, ok)
		ctxActor = logger.GetActorID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, actor.ID)
	assert.Equal(t, "Finance Lead", actor.Name)
	assert.True(t, actor.Privileged)
	assert.Equal(t, userID.String(), ctxActor)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	parser := newTestParser()
	expired, err := parser.Issue(uuid.New(), "", false, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic abc", dto.ErrCodeUnauthorized},
		{"empty token", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeUnauthorized},
		{"expired token", "Bearer " + expired, dto.ErrCodeTokenExpired},
	}

	router := newJWTRouter(parser, func(c *gin.Context) {
		t.Fatal("handler must not run")
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, tt.code, errInfo.Code)
			assert.NotEmpty(t, errInfo.RequestID)
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := newJWTRouter(newTestParser(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetActor_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetActor(c)
	assert.False(t, ok)
}

func TestRequirePrivileged(t *testing.T) {
	parser := newTestParser()
	router := gin.New()
	router.Use(JWTAuthMiddleware(JWTMiddlewareConfig{Parser: parser}))
	router.POST("/audit", RequirePrivileged(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tt := range []struct {
		privileged bool
		status     int
	}{
		{false, http.StatusForbidden},
		{true, http.StatusOK},
	} {
		token, err := parser.Issue(uuid.New(), "", tt.privileged, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/audit", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tt.status, w.Code)
	}
}
