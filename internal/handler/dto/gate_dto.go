package dto

import (
	"time"

	"github.com/google/uuid"
)

// GateCheckResponse reports the decision for the credential carried by the
// request itself. Served from the metered endpoint, so receiving it at all
// means the gate allowed the call.
type GateCheckResponse struct {
	OrganizationID     uuid.UUID `json:"organization_id"`
	TierID             uuid.UUID `json:"tier_id"`
	Scopes             []string  `json:"scopes"`
	RateLimitPerMinute int       `json:"rate_limit_per_minute"`
	MonthlyTokenLimit  *int64    `json:"monthly_token_limit,omitempty"`
}

// GateRejectionResponse is what the middleware writes when the gate denies.
type GateRejectionResponse struct {
	Code       string     `json:"code"`
	Message    string     `json:"message"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
}
