package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"thicket/internal/logger"
	"thicket/internal/middleware"
	"thicket/internal/models"
	"thicket/internal/services"

	"github.com/gin-gonic/gin"
)

// RenderError maps an engine error onto a status and JSON body.
func RenderError(c *gin.Context, err error) {
	var (
		verr *services.ValidationError
		derr *services.DuplicateError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": verr.Fields()})
	case errors.As(err, &derr):
		existing := models.Comment{ID: derr.ExistingID}
		c.JSON(http.StatusConflict, gin.H{
			"error":    derr.Error(),
			"scope":    derr.Scope,
			"existing": existing.Handle(),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, services.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrBadCredentials.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		logger.From(c.Request.Context()).Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// badRequest answers a malformed request body or parameter.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(middleware.CheckUserKey).(*models.User)
}

// userParam parses a numeric user id path parameter.
func userParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// commentView is a comment as the API shows it, addressed by handle.
type commentView struct {
	*models.Comment
	Handle string `json:"handle"`
}

func viewOf(c *models.Comment) commentView {
	return commentView{Comment: c, Handle: c.Handle()}
}
