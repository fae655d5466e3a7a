package handlers

import (
	"net/http"

	"thicket/internal/services"

	"github.com/gin-gonic/gin"
)

type SaveHandler struct {
	svc *services.Service
}

func NewSaveHandler(svc *services.Service) *SaveHandler {
	return &SaveHandler{svc: svc}
}

func (h *SaveHandler) Save(c *gin.Context) {
	id, ok := handleParam(c)
	if !ok {
		return
	}
	save, err := h.svc.Save(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, save)
}

func (h *SaveHandler) Unsave(c *gin.Context) {
	id, ok := handleParam(c)
	if !ok {
		return
	}
	if err := h.svc.Unsave(c.Request.Context(), currentUser(c).ID, id); err != nil {
		RenderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
