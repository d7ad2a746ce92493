package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lumapix/moments-backend/internal/service"
	"github.com/lumapix/moments-backend/pkg/response"
)

// MediaHandler handles HTTP requests for individual media items
type MediaHandler struct {
	library *service.LibraryService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(library *service.LibraryService) *MediaHandler {
	return &MediaHandler{library: library}
}

// GetItem handles GET /api/v1/media/:id
func (h *MediaHandler) GetItem(c *gin.Context) {
	item, err := h.library.GetItem(c.Param("id"))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if item == nil {
		response.NotFound(c, "Media item not found")
		return
	}

	response.Success(c, item)
}

// ListDayItems handles GET /api/v1/days/:dayKey/items with page and
// pageSize query parameters
func (h *MediaHandler) ListDayItems(c *gin.Context) {
	includeHidden := c.Query("includeHidden") == "true"

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.BadRequest(c, "Invalid page parameter")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(service.DefaultPageSize)))
	if err != nil || pageSize < 1 {
		response.BadRequest(c, "Invalid pageSize parameter")
		return
	}

	result, err := h.library.ListDayItemsPage(c.Param("dayKey"), includeHidden, page, pageSize)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// Hide handles POST /api/v1/media/:id/hide
func (h *MediaHandler) Hide(c *gin.Context) {
	h.setHidden(c, true)
}

// Unhide handles POST /api/v1/media/:id/unhide
func (h *MediaHandler) Unhide(c *gin.Context) {
	h.setHidden(c, false)
}

func (h *MediaHandler) setHidden(c *gin.Context, hidden bool) {
	id := c.Param("id")
	if err := h.library.SetHidden(id, hidden); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, gin.H{"id": id, "hidden": hidden})
}

type deleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Delete handles DELETE /api/v1/media. Partial failure is a success
// response; the failed ids are reported for retry.
func (h *MediaHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.library.DeleteItems(c.Request.Context(), req.IDs)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}
