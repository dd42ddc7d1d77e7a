package service

import (
	"context"
	"fmt"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/ierr"
	"github.com/avelora/keygate-api/internal/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type APIKeyService struct {
	repo   apikey.Repository
	orgs   org.Repository
	logger *zap.Logger
}

func NewAPIKeyService(repo apikey.Repository, orgs org.Repository, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		repo:   repo,
		orgs:   orgs,
		logger: logger.Named("APIKeyService"),
	}
}

func (s *APIKeyService) CreateAPIKey(ctx context.Context, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	owner, err := s.orgs.FindByID(ctx, req.OrganizationID)
	if err != nil {
		s.logger.Warn("Refusing to mint key for unknown organization",
			zap.String("org_id", req.OrganizationID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: organization %s", ierr.ErrNotFound, req.OrganizationID)
	}
	if owner.Status == org.StatusRevoked {
		return nil, fmt.Errorf("%w: organization is revoked", ierr.ErrForbidden)
	}

	env := apikey.Environment(req.Environment)
	fullKey, prefix, secretHash, err := util.GenerateAPIKey(env)
	if err != nil {
		s.logger.Error("Failed to generate api key components", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = apikey.DefaultScopes
	}

	newKey := &apikey.APIKey{
		OrganizationID:    owner.ID,
		SecretHash:        secretHash,
		Prefix:            prefix,
		Environment:       env,
		Scopes:            scopes,
		RateLimitOverride: req.RateLimitOverride,
		IsActive:          true,
		ExpiresAt:         req.ExpiresAt,
	}

	insertedID, err := s.repo.Create(ctx, newKey)
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}

	s.logger.Info("API key created",
		zap.String("id", insertedID.String()),
		zap.String("org_id", owner.ID.String()),
		zap.String("prefix", prefix),
	)

	return &dto.CreateAPIKeyResponse{
		ID:             insertedID,
		FullKey:        fullKey,
		Prefix:         prefix,
		OrganizationID: owner.ID,
		Environment:    string(env),
		Scopes:         scopes,
		ExpiresAt:      req.ExpiresAt,
	}, nil
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context, orgID uuid.UUID) ([]*dto.APIKeyResponse, error) {
	keys, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to list api keys from repository", zap.String("org_id", orgID.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error listing api keys: %w", err)
	}

	responses := make([]*dto.APIKeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = &dto.APIKeyResponse{
			ID:                key.ID,
			OrganizationID:    key.OrganizationID,
			Prefix:            key.Prefix,
			Environment:       string(key.Environment),
			Scopes:            key.Scopes,
			RateLimitOverride: key.RateLimitOverride,
			IsActive:          key.IsActive,
			ExpiresAt:         key.ExpiresAt,
			LastUsedAt:        key.LastUsedAt,
			CreatedAt:         key.CreatedAt,
		}
	}
	return responses, nil
}

// RevokeAPIKey disables the key. There is no undo; issue a new key instead.
func (s *APIKeyService) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Disable(ctx, id)
	if err != nil {
		s.logger.Error("Failed to revoke api key via repository", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("repository error revoking api key %s: %w", id, err)
	}
	s.logger.Info("API key revoked", zap.String("id", id.String()))
	return nil
}
