package dto

import (
	"time"

	"github.com/google/uuid"
)

type MonthlyUsageResponse struct {
	OrganizationID    uuid.UUID `json:"organization_id"`
	MonthStart        time.Time `json:"month_start"`
	TotalRequests     int64     `json:"total_requests"`
	TotalTokens       int64     `json:"total_tokens"`
	MonthlyTokenLimit *int64    `json:"monthly_token_limit,omitempty"`
	PercentConsumed   *float64  `json:"percent_consumed,omitempty"`
}
