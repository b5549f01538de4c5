package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ai-videos-backend/internal/config"
	"ai-videos-backend/internal/models"
)

const (
	UserIDKey    = "user_id"
	APIKeyHeader = "x-api-key"
)

// AuthMiddleware accepts either the shared API key in the x-api-key header or
// an HS256 bearer token signed with the JWT secret. Either mechanism is
// skipped when its secret is not configured.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(APIKeyHeader); key != "" {
			if cfg.APIKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1 {
				c.Next()
				return
			}
			unauthorized(c, "invalid api key")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			unauthorized(c, "invalid authorization header format")
			return
		}
		if cfg.JWTSecret == "" {
			unauthorized(c, "bearer tokens are not accepted")
			return
		}

		token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			message := "invalid token"
			if err != nil && strings.Contains(err.Error(), "token is expired") {
				message = "token has expired"
			}
			unauthorized(c, message)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "invalid token claims")
			return
		}
		if sub, ok := claims["sub"].(string); ok {
			c.Set(UserIDKey, sub)
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Message: "Unauthorized",
		Error:   reason,
	})
}
