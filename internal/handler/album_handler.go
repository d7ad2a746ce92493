package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lumapix/moments-backend/internal/service"
	"github.com/lumapix/moments-backend/pkg/response"
)

// AlbumHandler handles HTTP requests for browsing the organized library
type AlbumHandler struct {
	library *service.LibraryService
}

// NewAlbumHandler creates a new album handler
func NewAlbumHandler(library *service.LibraryService) *AlbumHandler {
	return &AlbumHandler{library: library}
}

// ListDays handles GET /api/v1/days
func (h *AlbumHandler) ListDays(c *gin.Context) {
	days, err := h.library.ListDays()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"days":  days,
		"count": len(days),
	})
}

// GetDay handles GET /api/v1/days/:dayKey
func (h *AlbumHandler) GetDay(c *gin.Context) {
	dayKey := c.Param("dayKey")

	day, err := h.library.GetDay(dayKey)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if day == nil {
		response.NotFound(c, "Day not found")
		return
	}

	response.Success(c, day)
}

// GetCluster handles GET /api/v1/clusters/:id
func (h *AlbumHandler) GetCluster(c *gin.Context) {
	id := c.Param("id")

	cluster, err := h.library.GetCluster(id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if cluster == nil {
		response.NotFound(c, "Cluster not found")
		return
	}

	response.Success(c, cluster)
}
