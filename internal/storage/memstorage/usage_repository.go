package memstorage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/google/uuid"
)

// UsageRepository keeps one row per composite key, mirroring the unique
// constraint on usage_daily. Increments happen under the mutex, so the
// additive-counter contract holds under concurrency.
type UsageRepository struct {
	mu   sync.Mutex
	rows map[string]*usage.Daily
}

func NewUsageRepository() *UsageRepository {
	return &UsageRepository{rows: make(map[string]*usage.Daily)}
}

var _ usage.Repository = (*UsageRepository)(nil)

func rowKey(orgID uuid.UUID, day time.Time, source usage.Source, endpoint string) string {
	return fmt.Sprintf("%s|%s|%s|%s", orgID, day.Format("2006-01-02"), source, endpoint)
}

func (r *UsageRepository) Increment(ctx context.Context, orgID uuid.UUID, date time.Time, source usage.Source, endpoint string, requestDelta, tokenDelta int64) error {
	day := usage.DayStart(date)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rowKey(orgID, day, source, endpoint)
	row, ok := r.rows[key]
	if !ok {
		row = &usage.Daily{
			OrganizationID: orgID,
			Date:           day,
			Source:         source,
			Endpoint:       endpoint,
		}
		r.rows[key] = row
	}
	row.RequestCount += requestDelta
	row.TokensUsed += tokenDelta
	return nil
}

func (r *UsageRepository) SumSince(ctx context.Context, orgID uuid.UUID, since time.Time) (*usage.MonthlyTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var totals usage.MonthlyTotals
	for _, row := range r.rows {
		if row.OrganizationID == orgID && !row.Date.Before(since) {
			totals.TotalRequests += row.RequestCount
			totals.TotalTokens += row.TokensUsed
		}
	}
	return &totals, nil
}

func (r *UsageRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, row := range r.rows {
		if row.Date.Before(cutoff) {
			delete(r.rows, key)
			deleted++
		}
	}
	return deleted, nil
}
