package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Increment upserts the daily row for the composite key and adds the
	// deltas to its counters. The increment must be atomic: concurrent
	// calls for the same row may not lose updates.
	Increment(ctx context.Context, orgID uuid.UUID, date time.Time, source Source, endpoint string, requestDelta, tokenDelta int64) error
	// SumSince totals counters for the organization over rows with
	// usage_date >= since.
	SumSince(ctx context.Context, orgID uuid.UUID, since time.Time) (*MonthlyTotals, error)
	// DeleteBefore removes rows older than the cutoff date. Retention only.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
