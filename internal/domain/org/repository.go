package org

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrUpdateFailed         = errors.New("organization update failed")
)

type Repository interface {
	Create(ctx context.Context, o *Organization) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, tierID uuid.UUID, subStatus SubscriptionStatus) error
}
