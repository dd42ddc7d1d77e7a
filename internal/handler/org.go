package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/handler/middleware"
	"github.com/avelora/keygate-api/internal/ierr"
	"github.com/avelora/keygate-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrgHandler struct {
	service     *service.OrgService
	tierService *service.TierService
	gate        *service.GateService
	logger      *zap.Logger
}

func NewOrgHandler(orgService *service.OrgService, tierService *service.TierService, gate *service.GateService, logger *zap.Logger) *OrgHandler {
	return &OrgHandler{
		service:     orgService,
		tierService: tierService,
		gate:        gate,
		logger:      logger.Named("OrgHandler"),
	}
}

func (h *OrgHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create organization request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	created, err := h.service.CreateOrganization(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to create organization", zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewOrganizationResponse(created))
}

func (h *OrgHandler) List(c *gin.Context) {
	orgs, err := h.service.ListOrganizations(c.Request.Context())
	if err != nil {
		h.logger.Error("Service failed to list organizations", zap.Error(err))
		_ = c.Error(err)
		return
	}

	responses := make([]*dto.OrganizationResponse, len(orgs))
	for i, o := range orgs {
		responses[i] = dto.NewOrganizationResponse(o)
	}
	c.JSON(http.StatusOK, responses)
}

func (h *OrgHandler) GetByID(c *gin.Context) {
	id, ok := h.orgID(c)
	if !ok {
		return
	}

	o, err := h.service.GetOrganization(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, org.ErrOrganizationNotFound) {
			_ = c.Error(fmt.Errorf("%w: organization %s", ierr.ErrNotFound, id))
			return
		}
		h.logger.Error("Service failed to get organization", zap.String("id", id.String()), zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrganizationResponse(o))
}

// Transition builds one handler per admin lifecycle action so each route
// stays independently auditable.
func (h *OrgHandler) Transition(to org.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.orgID(c)
		if !ok {
			return
		}

		updated, err := h.service.Transition(c.Request.Context(), id, to, h.actor(c))
		if err != nil {
			if errors.Is(err, org.ErrOrganizationNotFound) {
				_ = c.Error(fmt.Errorf("%w: organization %s", ierr.ErrNotFound, id))
				return
			}
			h.logger.Warn("Organization transition failed",
				zap.String("id", id.String()),
				zap.String("to", string(to)),
				zap.Error(err),
			)
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, dto.NewOrganizationResponse(updated))
	}
}

func (h *OrgHandler) UpdateSubscription(c *gin.Context) {
	id, ok := h.orgID(c)
	if !ok {
		return
	}

	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind subscription update request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	updated, err := h.service.UpdateSubscription(c.Request.Context(), id, &req, h.actor(c))
	if err != nil {
		if errors.Is(err, org.ErrOrganizationNotFound) {
			_ = c.Error(fmt.Errorf("%w: organization %s", ierr.ErrNotFound, id))
			return
		}
		h.logger.Error("Service failed to update subscription", zap.String("id", id.String()), zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrganizationResponse(updated))
}

func (h *OrgHandler) MonthlyUsage(c *gin.Context) {
	id, ok := h.orgID(c)
	if !ok {
		return
	}

	o, err := h.service.GetOrganization(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, org.ErrOrganizationNotFound) {
			_ = c.Error(fmt.Errorf("%w: organization %s", ierr.ErrNotFound, id))
			return
		}
		_ = c.Error(err)
		return
	}

	totals, monthStart, err := h.gate.MonthlyUsage(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get monthly usage", zap.String("id", id.String()), zap.Error(err))
		_ = c.Error(err)
		return
	}

	resp := dto.MonthlyUsageResponse{
		OrganizationID: id,
		MonthStart:     monthStart,
		TotalRequests:  totals.TotalRequests,
		TotalTokens:    totals.TotalTokens,
	}

	if planTier, err := h.tierService.FindTier(c.Request.Context(), o.SubscriptionTierID); err == nil && planTier.MonthlyTokenLimit != nil {
		resp.MonthlyTokenLimit = planTier.MonthlyTokenLimit
		pct := float64(totals.TotalTokens) / float64(*planTier.MonthlyTokenLimit) * 100
		resp.PercentConsumed = &pct
	}

	c.JSON(http.StatusOK, resp)
}

func (h *OrgHandler) orgID(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format received", zap.String("id_param", idStr), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: invalid organization id format", ierr.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrgHandler) actor(c *gin.Context) string {
	if claims := middleware.GetAdminClaims(c); claims != nil {
		return claims.Username
	}
	return "unknown"
}
