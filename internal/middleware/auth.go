package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aignite/internal/models"
	"aignite/internal/repository"
	"aignite/internal/service"
)

const bearerPrefix = "Bearer "

// identityKey is the single context key the middleware writes. Handlers go
// through IdentityFrom rather than touching the key directly.
const identityKey = "aignite/identity"

// SetIdentity attaches the resolved caller to the request context.
func SetIdentity(c *gin.Context, identity models.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the caller attached by the auth middleware.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

// Auth gates protected routes on a valid bearer token. The token's subject
// is resolved to a live account; a token for a deleted account is treated
// as an authentication failure.
func Auth(tokens *service.TokenService, users repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		userID, err := tokens.Verify(tokenString)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"message": "Token expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			}
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			c.Abort()
			return
		}
		if err != nil {
			logger.Error("Failed to resolve token subject",
				zap.Int64("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			c.Abort()
			return
		}

		SetIdentity(c, models.Identity{UserID: user.ID, User: user})
		c.Next()
	}
}
