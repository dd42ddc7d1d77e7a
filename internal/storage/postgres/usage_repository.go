package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UsageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUsageRepository(db *pgxpool.Pool, logger *zap.Logger) *UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger.Named("UsageRepository"),
	}
}

var _ usage.Repository = (*UsageRepository)(nil)

// Increment relies on the unique index over the composite key. The
// ON CONFLICT arithmetic runs inside the database, so concurrent increments
// to the same row are additive rather than last-writer-wins.
func (r *UsageRepository) Increment(ctx context.Context, orgID uuid.UUID, date time.Time, source usage.Source, endpoint string, requestDelta, tokenDelta int64) error {
	query := `
		INSERT INTO usage_daily (organization_id, usage_date, source, endpoint, request_count, tokens_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_id, usage_date, source, endpoint)
		DO UPDATE SET
			request_count = usage_daily.request_count + EXCLUDED.request_count,
			tokens_used   = usage_daily.tokens_used + EXCLUDED.tokens_used
	`

	day := usage.DayStart(date)
	_, err := r.db.Exec(ctx, query, orgID, day, source, endpoint, requestDelta, tokenDelta)
	if err != nil {
		r.logger.Error("Failed to increment daily usage row",
			zap.String("org_id", orgID.String()),
			zap.String("source", string(source)),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return fmt.Errorf("db error incrementing usage: %w", err)
	}

	return nil
}

func (r *UsageRepository) SumSince(ctx context.Context, orgID uuid.UUID, since time.Time) (*usage.MonthlyTotals, error) {
	query := `
		SELECT COALESCE(SUM(request_count), 0), COALESCE(SUM(tokens_used), 0)
		FROM usage_daily
		WHERE organization_id = $1 AND usage_date >= $2
	`

	var totals usage.MonthlyTotals
	err := r.db.QueryRow(ctx, query, orgID, since).Scan(&totals.TotalRequests, &totals.TotalTokens)
	if err != nil {
		r.logger.Error("Failed to sum usage rows", zap.String("org_id", orgID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error summing usage: %w", err)
	}

	return &totals, nil
}

func (r *UsageRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM usage_daily WHERE usage_date < $1`

	cmdTag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to delete usage rows past retention", zap.Error(err))
		return 0, fmt.Errorf("db error pruning usage: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}
