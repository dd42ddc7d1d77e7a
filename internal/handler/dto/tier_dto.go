package dto

import (
	"time"

	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/google/uuid"
)

type CreateTierRequest struct {
	Name               string `json:"name" binding:"required"`
	MonthlyTokenLimit  *int64 `json:"monthly_token_limit,omitempty" binding:"omitempty,gt=0"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" binding:"required,gt=0"`
}

type TierResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	MonthlyTokenLimit  *int64    `json:"monthly_token_limit,omitempty"`
	RateLimitPerMinute int       `json:"rate_limit_per_minute"`
	CreatedAt          time.Time `json:"created_at"`
}

func NewTierResponse(t *tier.Tier) *TierResponse {
	return &TierResponse{
		ID:                 t.ID,
		Name:               t.Name,
		MonthlyTokenLimit:  t.MonthlyTokenLimit,
		RateLimitPerMinute: t.RateLimitPerMinute,
		CreatedAt:          t.CreatedAt,
	}
}
