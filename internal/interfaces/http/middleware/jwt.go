package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/auth"
	"github.com/erp/quotefinance/internal/infrastructure/logger"
	"github.com/erp/quotefinance/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	ActorKey      = "actor"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Actor is the authenticated caller of a request. Privileged actors may
// submit payments that confirm immediately.
type Actor struct {
	ID         uuid.UUID
	Name       string
	Privileged bool
}

// TokenParser verifies a bearer token and returns its claims
type TokenParser interface {
	Parse(tokenString string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Parser TokenParser
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuthMiddleware resolves the request's Actor from its bearer token and
// rejects the request with 401 when none can be resolved.
func JWTAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		token, found := strings.CutPrefix(header, BearerPrefix)
		if !found || token == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing bearer token")
			return
		}

		claims, err := cfg.Parser.Parse(token)
		if err != nil {
			abortUnauthorized(c, log, err, "Token validation failed")
			return
		}
		actorID, err := claims.UserID()
		if err != nil {
			abortUnauthorized(c, log, err, "Token subject is not a user id")
			return
		}

		c.Set(ActorKey, Actor{ID: actorID, Name: claims.Name, Privileged: claims.Privileged})
		c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), actorID.String()))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	logger.Enrich(c.Request.Context(), log).Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, text := dto.ErrCodeUnauthorized, "Authentication required"
	if errors.Is(err, auth.ErrExpiredToken) {
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, text, GetRequestID(c)))
}

// GetActor returns the Actor resolved by JWTAuthMiddleware
func GetActor(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

// RequirePrivileged limits a route to privileged (finance) actors
func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if !actor.Privileged {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				shared.CodeForbidden, "Finance privileges required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
