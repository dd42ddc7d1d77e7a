package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/google/uuid"
)

type TierRepository struct {
	mu    sync.RWMutex
	tiers map[uuid.UUID]*tier.Tier
}

func NewTierRepository() *TierRepository {
	return &TierRepository{tiers: make(map[uuid.UUID]*tier.Tier)}
}

var _ tier.Repository = (*TierRepository)(nil)

func (r *TierRepository) Create(ctx context.Context, t *tier.Tier) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *t
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.tiers[stored.ID] = &stored
	return stored.ID, nil
}

func (r *TierRepository) FindByID(ctx context.Context, id uuid.UUID) (*tier.Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tiers[id]
	if !ok {
		return nil, tier.ErrTierNotFound
	}
	tierCopy := *t
	return &tierCopy, nil
}

func (r *TierRepository) List(ctx context.Context) ([]*tier.Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tiers := make([]*tier.Tier, 0, len(r.tiers))
	for _, t := range r.tiers {
		tierCopy := *t
		tiers = append(tiers, &tierCopy)
	}
	return tiers, nil
}
