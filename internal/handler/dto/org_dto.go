package dto

import (
	"time"

	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/google/uuid"
)

type CreateOrganizationRequest struct {
	Name               string    `json:"name" binding:"required"`
	SubscriptionTierID uuid.UUID `json:"subscription_tier_id" binding:"required"`
	SubscriptionStatus string    `json:"subscription_status,omitempty" binding:"omitempty,oneof=active past_due canceled trialing"`
}

type UpdateSubscriptionRequest struct {
	SubscriptionTierID uuid.UUID `json:"subscription_tier_id" binding:"required"`
	SubscriptionStatus string    `json:"subscription_status" binding:"required,oneof=active past_due canceled trialing"`
}

type OrganizationResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Status             string    `json:"status"`
	SubscriptionTierID uuid.UUID `json:"subscription_tier_id"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func NewOrganizationResponse(o *org.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:                 o.ID,
		Name:               o.Name,
		Status:             string(o.Status),
		SubscriptionTierID: o.SubscriptionTierID,
		SubscriptionStatus: string(o.SubscriptionStatus),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
