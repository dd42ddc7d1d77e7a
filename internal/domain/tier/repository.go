package tier

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrTierNotFound = errors.New("subscription tier not found")

type Repository interface {
	Create(ctx context.Context, t *Tier) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Tier, error)
	List(ctx context.Context) ([]*Tier, error)
}
