package middleware

import (
	"context"
	"net/http"

	"thicket/internal/logger"
	"thicket/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey  = "user"
	SessionUserID = "user_id"
)

// UserLoader resolves the session's user id.
type UserLoader interface {
	User(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired rejects requests without a loaded user.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// LoadUser retrieves the user from the session and sets it on the context.
// A stale session (user deleted) is cleared.
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionUserID).(uint)
		if ok {
			ctx := c.Request.Context()
			user, err := users.User(ctx, id)
			if err == nil {
				c.Set(CheckUserKey, user)
				lg := logger.From(ctx).With("user_id", user.ID)
				c.Request = c.Request.WithContext(logger.Into(ctx, lg))
			} else {
				session.Delete(SessionUserID)
				_ = session.Save()
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user LoadUser attached, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}
