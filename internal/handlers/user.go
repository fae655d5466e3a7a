package handlers

import (
	"net/http"

	"thicket/internal/models"
	"thicket/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *services.Service
}

func NewUserHandler(svc *services.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type settingsRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := userParam(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.User(c.Request.Context(), id)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), currentUser(c).ID, models.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Follow(c *gin.Context) {
	id, ok := userParam(c, "id")
	if !ok {
		return
	}
	bond, err := h.svc.Follow(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, bond)
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	id, ok := userParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unfollow(c.Request.Context(), currentUser(c).ID, id); err != nil {
		RenderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
