package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type OrganizationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewOrganizationRepository(db *pgxpool.Pool, logger *zap.Logger) *OrganizationRepository {
	return &OrganizationRepository{
		db:     db,
		logger: logger.Named("OrganizationRepository"),
	}
}

var _ org.Repository = (*OrganizationRepository)(nil)

const orgColumns = `id, name, status, subscription_tier_id, subscription_status, created_at, updated_at`

func (r *OrganizationRepository) scanOrganization(row pgx.Row) (*org.Organization, error) {
	var o org.Organization
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Status,
		&o.SubscriptionTierID,
		&o.SubscriptionStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, o *org.Organization) (uuid.UUID, error) {
	query := `
		INSERT INTO organizations (name, status, subscription_tier_id, subscription_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		o.Name,
		o.Status,
		o.SubscriptionTierID,
		o.SubscriptionStatus,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create organization with duplicate name",
				zap.String("name", o.Name),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return uuid.Nil, fmt.Errorf("organization '%s' already exists", o.Name)
		}
		r.logger.Error("Failed to create organization in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create organization: %w", err)
	}

	r.logger.Info("Organization created", zap.String("id", insertedID.String()), zap.String("name", o.Name))
	return insertedID, nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*org.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`

	o, err := r.scanOrganization(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrOrganizationNotFound
		}
		r.logger.Error("Failed to find organization by ID", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("database error on find organization: %w", err)
	}

	return o, nil
}

func (r *OrganizationRepository) List(ctx context.Context) ([]*org.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query list of organizations", zap.Error(err))
		return nil, fmt.Errorf("database error on list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*org.Organization, 0)
	for rows.Next() {
		o, err := r.scanOrganization(rows)
		if err != nil {
			r.logger.Error("Failed to scan organization row", zap.Error(err))
			return nil, fmt.Errorf("database error scanning organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating organizations: %w", err)
	}

	return orgs, nil
}

func (r *OrganizationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status org.Status) error {
	query := `UPDATE organizations SET status = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update organization status", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", org.ErrUpdateFailed, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return org.ErrOrganizationNotFound
	}

	return nil
}

func (r *OrganizationRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, tierID uuid.UUID, subStatus org.SubscriptionStatus) error {
	query := `UPDATE organizations SET subscription_tier_id = $1, subscription_status = $2, updated_at = NOW() WHERE id = $3`

	cmdTag, err := r.db.Exec(ctx, query, tierID, subStatus, id)
	if err != nil {
		r.logger.Error("Failed to update organization subscription", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", org.ErrUpdateFailed, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return org.ErrOrganizationNotFound
	}

	return nil
}
