package tier

import (
	"time"

	"github.com/google/uuid"
)

// Tier bundles the usage cap and default per-minute rate limit granted to
// organizations on a subscription plan. A nil MonthlyTokenLimit means
// unlimited usage.
type Tier struct {
	ID                 uuid.UUID `db:"id"`
	Name               string    `db:"name"`
	MonthlyTokenLimit  *int64    `db:"monthly_token_limit"`
	RateLimitPerMinute int       `db:"rate_limit_per_minute"`
	CreatedAt          time.Time `db:"created_at"`
}
