package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/creditx/hold-service/internal/api_gateway/middleware"
	"github.com/creditx/hold-service/internal/api_gateway/service"
	"github.com/creditx/hold-service/internal/domain/hold"
)

// HoldHandler handles HTTP requests for hold operations
type HoldHandler struct {
	holdService service.HoldService
	logger      *slog.Logger
}

// NewHoldHandler creates a new hold handler
func NewHoldHandler(logger *slog.Logger, holdService service.HoldService) *HoldHandler {
	return &HoldHandler{
		holdService: holdService,
		logger:      logger,
	}
}

// Create authorizes a hold. A repeated transactionId returns the existing hold with 200.
func (h *HoldHandler) Create(c *gin.Context) {
	var req CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.holdService.CreateHold(c.Request.Context(), req.toDomain())
	if err != nil {
		if hold.IsValidationError(err) {
			RespondValidationError(c, err)
			return
		}
		h.logger.Error("Failed to create hold",
			"transaction_id", req.TransactionID,
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	response := CreateHoldResponse{HoldID: result.HoldID, Status: string(result.Status)}
	if result.Replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// GetByID retrieves a hold by its ID, returns 404 if not found
func (h *HoldHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid hold ID")
		return
	}

	result, err := h.holdService.GetHold(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, hold.ErrHoldNotFound{}) {
			RespondNotFound(c, "Hold not found")
			return
		}
		h.logger.Error("Failed to get hold", "hold_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapHoldToResponse(result))
}
