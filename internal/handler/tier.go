package handler

import (
	"fmt"
	"net/http"

	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/ierr"
	"github.com/avelora/keygate-api/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TierHandler struct {
	service *service.TierService
	logger  *zap.Logger
}

func NewTierHandler(service *service.TierService, logger *zap.Logger) *TierHandler {
	return &TierHandler{
		service: service,
		logger:  logger.Named("TierHandler"),
	}
}

func (h *TierHandler) Create(c *gin.Context) {
	var req dto.CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create tier request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	created, err := h.service.CreateTier(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to create tier", zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTierResponse(created))
}

func (h *TierHandler) List(c *gin.Context) {
	tiers, err := h.service.ListTiers(c.Request.Context())
	if err != nil {
		h.logger.Error("Service failed to list tiers", zap.Error(err))
		_ = c.Error(err)
		return
	}

	responses := make([]*dto.TierResponse, len(tiers))
	for i, t := range tiers {
		responses[i] = dto.NewTierResponse(t)
	}
	c.JSON(http.StatusOK, responses)
}
