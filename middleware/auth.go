package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// SessionUserKey is the cookie session key holding the logged in user id.
	SessionUserKey = "UserID"
	userIDKey      = "userID"
)

// AuthRequired accepts either a cookie session set by /login or an
// "Authorization: Bearer <jwt>" header, and stores the user id in the context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			claims, err := ParseToken(secret, header)
			if err != nil {
				zap.S().Debugf("[AUTH] rejected bearer token on %s: %v", c.Request.URL.Path, err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.Set(userIDKey, claims.UserID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		id, ok := session.Get(SessionUserKey).(uint)
		if !ok || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// CurrentUserID returns the id stored by AuthRequired.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
