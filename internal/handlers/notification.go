package handlers

import (
	"net/http"

	"thicket/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc *services.Service
}

func NewNotificationHandler(svc *services.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// Counters reports the unseen counts without clearing them.
func (h *NotificationHandler) Counters(c *gin.Context) {
	counters, err := h.svc.Counters(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, counters)
}

func (h *NotificationHandler) MarkSeen(c *gin.Context) {
	n, err := h.svc.MarkSeen(c.Request.Context(), currentUser(c).ID, services.SeenKind(c.Param("kind")))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}
