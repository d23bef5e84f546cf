package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallybook/backend/internal/infrastructure/auth"
	"github.com/tallybook/backend/internal/infrastructure/logger"
)

// Keys under which the JWT middleware stores identity on the gin context.
const (
	JWTClaimsKey     = "jwt_claims"
	JWTBusinessIDKey = "jwt_business_id"
	JWTUserIDKey     = "jwt_user_id"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// JWTMiddlewareConfig configures the authentication middleware.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// SkipPaths and SkipPathPrefixes bypass authentication entirely.
	SkipPaths        []string
	SkipPathPrefixes []string
	// OnError replaces the default 401 response when set.
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

func (cfg JWTMiddlewareConfig) skips(path string) bool {
	for _, skip := range cfg.SkipPaths {
		if path == skip {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DefaultJWTConfig skips health probes, registration, and the public
// storefront surface.
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
			"/api/v1/health",
			"/api/v1/businesses/register",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
			"/api/v1/storefront",
		},
	}
}

// JWTAuthMiddleware authenticates requests with the default configuration.
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// bearerToken pulls the token out of the Authorization header. The
// returned message describes what was wrong when the token is empty.
func bearerToken(c *gin.Context) (token, problem string) {
	header := c.GetHeader(AuthHeaderKey)
	switch {
	case header == "":
		return "", "Missing authorization header"
	case !strings.HasPrefix(header, BearerPrefix):
		return "", "Invalid authorization header format"
	}
	token = strings.TrimPrefix(header, BearerPrefix)
	if token == "" {
		return "", "Missing token"
	}
	return token, ""
}

// JWTAuthMiddlewareWithConfig authenticates requests against the given
// configuration. On success the claims land on the gin context and the
// request logger is scoped to the business.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skips(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, problem := bearerToken(c)
		if problem != "" {
			handleAuthError(c, cfg, auth.ErrInvalidToken, problem)
			return
		}

		claims, err := cfg.JWTService.Validate(token)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTBusinessIDKey, claims.BusinessID)
		c.Set(JWTUserIDKey, claims.Subject)

		// Scope the request logger to the business so every log line
		// downstream carries the ID.
		ctx := c.Request.Context()
		ctx, _ = logger.WithBusinessID(ctx, logger.FromContext(ctx), claims.BusinessID)
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("JWT authentication successful",
				zap.String("business_id", claims.BusinessID),
			)
		}

		c.Next()
	}
}

// authErrorBody maps a validation error to the code and message the
// client sees. The default covers unexpected errors.
func authErrorBody(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "TOKEN_NOT_VALID", "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingBusinessID), errors.Is(err, auth.ErrInvalidClaims):
		return "INVALID_TOKEN", "Invalid token claims"
	case errors.Is(err, auth.ErrInvalidToken):
		return "INVALID_TOKEN", "Invalid token"
	default:
		return "UNAUTHORIZED", "Authentication required"
	}
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, msg := authErrorBody(err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": msg},
	})
}

// GetJWTClaims returns the validated claims, or nil before authentication.
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, ok := c.Get(JWTClaimsKey); ok {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTBusinessID returns the authenticated business ID, or "".
func GetJWTBusinessID(c *gin.Context) string {
	return contextString(c, JWTBusinessIDKey)
}
