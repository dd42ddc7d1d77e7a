package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TierRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTierRepository(db *pgxpool.Pool, logger *zap.Logger) *TierRepository {
	return &TierRepository{
		db:     db,
		logger: logger.Named("TierRepository"),
	}
}

var _ tier.Repository = (*TierRepository)(nil)

func (r *TierRepository) Create(ctx context.Context, t *tier.Tier) (uuid.UUID, error) {
	query := `
		INSERT INTO subscription_tiers (name, monthly_token_limit, rate_limit_per_minute)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query, t.Name, t.MonthlyTokenLimit, t.RateLimitPerMinute).Scan(&insertedID)
	if err != nil {
		r.logger.Error("Failed to create subscription tier in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create tier: %w", err)
	}

	r.logger.Info("Subscription tier created", zap.String("id", insertedID.String()), zap.String("name", t.Name))
	return insertedID, nil
}

func (r *TierRepository) FindByID(ctx context.Context, id uuid.UUID) (*tier.Tier, error) {
	query := `
		SELECT id, name, monthly_token_limit, rate_limit_per_minute, created_at
		FROM subscription_tiers
		WHERE id = $1
	`

	var t tier.Tier
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.MonthlyTokenLimit,
		&t.RateLimitPerMinute,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tier.ErrTierNotFound
		}
		r.logger.Error("Failed to find subscription tier by ID", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("database error on find tier: %w", err)
	}

	return &t, nil
}

func (r *TierRepository) List(ctx context.Context) ([]*tier.Tier, error) {
	query := `
		SELECT id, name, monthly_token_limit, rate_limit_per_minute, created_at
		FROM subscription_tiers
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query list of subscription tiers", zap.Error(err))
		return nil, fmt.Errorf("database error on list tiers: %w", err)
	}
	defer rows.Close()

	tiers := make([]*tier.Tier, 0)
	for rows.Next() {
		var t tier.Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.MonthlyTokenLimit, &t.RateLimitPerMinute, &t.CreatedAt); err != nil {
			r.logger.Error("Failed to scan subscription tier row", zap.Error(err))
			return nil, fmt.Errorf("database error scanning tier: %w", err)
		}
		tiers = append(tiers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating tiers: %w", err)
	}

	return tiers, nil
}
