package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lumapix/moments-backend/internal/service"
	"github.com/lumapix/moments-backend/pkg/response"
)

// ConsistencyHandler handles HTTP requests for the index consistency tools
type ConsistencyHandler struct {
	checker *service.ConsistencyService
}

// NewConsistencyHandler creates a new consistency handler
func NewConsistencyHandler(checker *service.ConsistencyService) *ConsistencyHandler {
	return &ConsistencyHandler{checker: checker}
}

// Verify handles GET /api/v1/consistency/verify
func (h *ConsistencyHandler) Verify(c *gin.Context) {
	mismatches, err := h.checker.Verify()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"mismatches": mismatches,
		"count":      len(mismatches),
	})
}

// Repair handles POST /api/v1/consistency/repair
func (h *ConsistencyHandler) Repair(c *gin.Context) {
	report, err := h.checker.Repair(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, report)
}

// Prune handles POST /api/v1/consistency/prune
func (h *ConsistencyHandler) Prune(c *gin.Context) {
	report, err := h.checker.PruneEmpty()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, report)
}

// Drain handles POST /api/v1/consistency/drain
func (h *ConsistencyHandler) Drain(c *gin.Context) {
	days, err := h.checker.DrainDirty(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"days":  days,
		"count": len(days),
	})
}
