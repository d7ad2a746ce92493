package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lumapix/moments-backend/internal/service"
	"github.com/lumapix/moments-backend/pkg/response"
)

// ScanHandler handles HTTP requests for scan orchestration
type ScanHandler struct {
	index *service.IndexService
}

// NewScanHandler creates a new scan handler
func NewScanHandler(index *service.IndexService) *ScanHandler {
	return &ScanHandler{index: index}
}

// StartFullScan handles POST /api/v1/scan/full. The response is sent once the
// first batch is indexed; the rest of the scan continues in the background
// and is observable via the status endpoint.
func (h *ScanHandler) StartFullScan(c *gin.Context) {
	err := h.index.StartFullScan(c.Request.Context(), service.ScanCallbacks{})
	if err != nil {
		if errors.Is(err, service.ErrScanInProgress) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, h.index.Status())
}

// StartIncrementalScan handles POST /api/v1/scan/incremental
func (h *ScanHandler) StartIncrementalScan(c *gin.Context) {
	err := h.index.StartIncrementalScan(c.Request.Context(), service.ScanCallbacks{})
	if err != nil {
		if errors.Is(err, service.ErrScanInProgress) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, h.index.Status())
}

// Status handles GET /api/v1/scan/status
func (h *ScanHandler) Status(c *gin.Context) {
	response.Success(c, h.index.Status())
}
