package handler

import (
	"net/http"

	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/handler/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GateHandler serves the reference metered endpoint. The interesting work
// happens in the gate middleware; reaching the handler means the request was
// allowed, so it just echoes the effective limits back to the caller.
type GateHandler struct {
	logger *zap.Logger
}

func NewGateHandler(logger *zap.Logger) *GateHandler {
	return &GateHandler{logger: logger.Named("GateHandler")}
}

func (h *GateHandler) Check(c *gin.Context) {
	result := middleware.GateResultFromContext(c)
	if result == nil {
		h.logger.Error("Gate check handler reached without gate decision in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gate decision missing"})
		return
	}

	c.JSON(http.StatusOK, dto.GateCheckResponse{
		OrganizationID:     result.OrganizationID,
		TierID:             result.TierID,
		Scopes:             result.Scopes,
		RateLimitPerMinute: result.RateLimitPerMinute,
		MonthlyTokenLimit:  result.MonthlyTokenLimit,
	})
}
