package service

import (
	"context"
	"fmt"

	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/ierr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrgService struct {
	repo   org.Repository
	tiers  tier.Repository
	logger *zap.Logger
	audit  *zap.Logger
}

func NewOrgService(repo org.Repository, tiers tier.Repository, logger *zap.Logger) *OrgService {
	return &OrgService{
		repo:   repo,
		tiers:  tiers,
		logger: logger.Named("OrgService"),
		audit:  logger.Named("OrgAudit"),
	}
}

func (s *OrgService) CreateOrganization(ctx context.Context, req *dto.CreateOrganizationRequest) (*org.Organization, error) {
	if _, err := s.tiers.FindByID(ctx, req.SubscriptionTierID); err != nil {
		return nil, fmt.Errorf("%w: subscription tier %s", ierr.ErrNotFound, req.SubscriptionTierID)
	}

	subStatus := org.SubscriptionStatus(req.SubscriptionStatus)
	if subStatus == "" {
		subStatus = org.SubscriptionActive
	}

	newOrg := &org.Organization{
		Name:               req.Name,
		Status:             org.StatusActive,
		SubscriptionTierID: req.SubscriptionTierID,
		SubscriptionStatus: subStatus,
	}

	insertedID, err := s.repo.Create(ctx, newOrg)
	if err != nil {
		s.logger.Error("Failed to create organization via repository", zap.Error(err))
		return nil, fmt.Errorf("repository error during organization creation: %w", err)
	}

	created, err := s.repo.FindByID(ctx, insertedID)
	if err != nil {
		s.logger.Error("Failed to find newly created organization by ID", zap.String("id", insertedID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve created organization (id: %s): %w", insertedID, err)
	}

	s.logger.Info("Organization created", zap.String("id", created.ID.String()), zap.String("name", created.Name))
	return created, nil
}

func (s *OrgService) GetOrganization(ctx context.Context, id uuid.UUID) (*org.Organization, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *OrgService) ListOrganizations(ctx context.Context) ([]*org.Organization, error) {
	return s.repo.List(ctx)
}

// Transition moves the organization through its lifecycle. Each transition
// is an independent admin action and leaves an audit line; illegal moves
// (anything out of revoked, resume of an active org) are rejected before
// touching storage.
func (s *OrgService) Transition(ctx context.Context, id uuid.UUID, to org.Status, actor string) (*org.Organization, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !org.CanTransition(current.Status, to) {
		s.logger.Warn("Rejected organization state transition",
			zap.String("id", id.String()),
			zap.String("from", string(current.Status)),
			zap.String("to", string(to)),
		)
		return nil, fmt.Errorf("%w: %s -> %s", ierr.ErrInvalidTransition, current.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}

	s.audit.Info("organization status changed",
		zap.String("org_id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)

	current.Status = to
	return current, nil
}

func (s *OrgService) UpdateSubscription(ctx context.Context, id uuid.UUID, req *dto.UpdateSubscriptionRequest, actor string) (*org.Organization, error) {
	if _, err := s.tiers.FindByID(ctx, req.SubscriptionTierID); err != nil {
		return nil, fmt.Errorf("%w: subscription tier %s", ierr.ErrNotFound, req.SubscriptionTierID)
	}

	subStatus := org.SubscriptionStatus(req.SubscriptionStatus)
	if err := s.repo.UpdateSubscription(ctx, id, req.SubscriptionTierID, subStatus); err != nil {
		return nil, err
	}

	s.audit.Info("organization subscription changed",
		zap.String("org_id", id.String()),
		zap.String("tier_id", req.SubscriptionTierID.String()),
		zap.String("subscription_status", string(subStatus)),
		zap.String("actor", actor),
	)

	return s.repo.FindByID(ctx, id)
}
