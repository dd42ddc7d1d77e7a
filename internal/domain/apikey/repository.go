package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

type Repository interface {
	FindBySecretHash(ctx context.Context, secretHash string) (*APIKey, error)
	Create(ctx context.Context, key *APIKey) (uuid.UUID, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*APIKey, error)
	Disable(ctx context.Context, id uuid.UUID) error
	// TouchLastUsed advances last_used_at to lastUsed if it is further in
	// the future than the stored value. Forward-only.
	TouchLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error
	// DisableExpired flips is_active off for keys whose expiry passed
	// before the cutoff. Returns the number of keys swept.
	DisableExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
