package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/google/uuid"
)

// APIKeyRepository is an in-memory apikey.Repository used by tests and local
// development wiring.
type APIKeyRepository struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*apikey.APIKey
}

func NewAPIKeyRepository() *APIKeyRepository {
	return &APIKeyRepository{keys: make(map[uuid.UUID]*apikey.APIKey)}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

func (r *APIKeyRepository) FindBySecretHash(ctx context.Context, secretHash string) (*apikey.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.keys {
		if k.SecretHash == secretHash {
			keyCopy := *k
			return &keyCopy, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *key
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.keys[stored.ID] = &stored
	return stored.ID, nil
}

func (r *APIKeyRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*apikey.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]*apikey.APIKey, 0)
	for _, k := range r.keys {
		if k.OrganizationID == orgID {
			keyCopy := *k
			keys = append(keys, &keyCopy)
		}
	}
	return keys, nil
}

func (r *APIKeyRepository) Disable(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[id]
	if !ok {
		return apikey.ErrAPIKeyNotFound
	}
	k.IsActive = false
	return nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[id]
	if !ok {
		return apikey.ErrAPIKeyNotFound
	}
	if k.LastUsedAt == nil || k.LastUsedAt.Before(lastUsed) {
		t := lastUsed
		k.LastUsedAt = &t
	}
	return nil
}

func (r *APIKeyRepository) DisableExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept int64
	for _, k := range r.keys {
		if k.IsActive && k.ExpiresAt != nil && k.ExpiresAt.Before(cutoff) {
			k.IsActive = false
			swept++
		}
	}
	return swept, nil
}
