package handlers

import (
	"net/http"

	"thicket/internal/services"
	"thicket/internal/utils"

	"github.com/gin-gonic/gin"
)

// StoryHandler serves threads, replies and the listings.
type StoryHandler struct {
	svc *services.Service
}

func NewStoryHandler(svc *services.Service) *StoryHandler {
	return &StoryHandler{svc: svc}
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *StoryHandler) CreateThread(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	thread, err := h.svc.CreateThread(c.Request.Context(), currentUser(c).ID, req.Content)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(thread))
}

func (h *StoryHandler) CreateReply(c *gin.Context) {
	parentID, ok := handleParam(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reply, err := h.svc.CreateReply(c.Request.Context(), parentID, currentUser(c).ID, req.Content)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(reply))
}

func (h *StoryHandler) Detail(c *gin.Context) {
	comment, err := h.svc.CommentByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(comment))
}

func (h *StoryHandler) Update(c *gin.Context) {
	id, ok := handleParam(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.svc.EditComment(c.Request.Context(), id, currentUser(c).ID, req.Content)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(comment))
}

func (h *StoryHandler) Delete(c *gin.Context) {
	id, ok := handleParam(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), id, currentUser(c).ID); err != nil {
		RenderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Feed serves the personal listings: threads, replies, mentions, followers,
// following and saved.
func (h *StoryHandler) Feed(c *gin.Context) {
	kind, ok := services.ParseKind(c.Param("kind"))
	if !ok || kind == services.KindTrending {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown listing"})
		return
	}

	page, err := h.svc.List(c.Request.Context(), currentUser(c).ID, kind, utils.ParsePage(c.Query("page")))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *StoryHandler) Trending(c *gin.Context) {
	page, err := h.svc.Trending(c.Request.Context(), utils.ParsePage(c.Query("page")))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func handleParam(c *gin.Context) (uint, bool) {
	id, ok := utils.ParseHandle(c.Param("handle"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}
