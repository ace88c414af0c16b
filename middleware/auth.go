package middleware

import (
	"context"
	"net/http"
	"strings"

	"farmsetu/apperr"
	"farmsetu/models"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// Authenticator resolves a bearer token to the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// JWTAuthMiddleware requires "Authorization: Bearer <token>" and stores the
// resolved user on the context.
func JWTAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "Not authorized to access this route. No token provided.")
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := apperr.Status(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				_ = c.Error(err)
				msg = "Server error during authentication"
			}
			abort(c, status, msg)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the user JWTAuthMiddleware stored, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
