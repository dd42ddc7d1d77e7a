package service

import (
	"context"
	"fmt"

	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TierService struct {
	repo   tier.Repository
	logger *zap.Logger
}

func NewTierService(repo tier.Repository, logger *zap.Logger) *TierService {
	return &TierService{
		repo:   repo,
		logger: logger.Named("TierService"),
	}
}

func (s *TierService) CreateTier(ctx context.Context, req *dto.CreateTierRequest) (*tier.Tier, error) {
	newTier := &tier.Tier{
		Name:               req.Name,
		MonthlyTokenLimit:  req.MonthlyTokenLimit,
		RateLimitPerMinute: req.RateLimitPerMinute,
	}

	insertedID, err := s.repo.Create(ctx, newTier)
	if err != nil {
		s.logger.Error("Failed to create subscription tier via repository", zap.Error(err))
		return nil, fmt.Errorf("repository error during tier creation: %w", err)
	}

	return s.repo.FindByID(ctx, insertedID)
}

func (s *TierService) ListTiers(ctx context.Context) ([]*tier.Tier, error) {
	return s.repo.List(ctx)
}

func (s *TierService) FindTier(ctx context.Context, id uuid.UUID) (*tier.Tier, error) {
	return s.repo.FindByID(ctx, id)
}
