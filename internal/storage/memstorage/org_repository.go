package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/google/uuid"
)

type OrganizationRepository struct {
	mu   sync.RWMutex
	orgs map[uuid.UUID]*org.Organization
}

func NewOrganizationRepository() *OrganizationRepository {
	return &OrganizationRepository{orgs: make(map[uuid.UUID]*org.Organization)}
}

var _ org.Repository = (*OrganizationRepository)(nil)

func (r *OrganizationRepository) Create(ctx context.Context, o *org.Organization) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *o
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.orgs[stored.ID] = &stored
	return stored.ID, nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*org.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orgs[id]
	if !ok {
		return nil, org.ErrOrganizationNotFound
	}
	orgCopy := *o
	return &orgCopy, nil
}

func (r *OrganizationRepository) List(ctx context.Context) ([]*org.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orgs := make([]*org.Organization, 0, len(r.orgs))
	for _, o := range r.orgs {
		orgCopy := *o
		orgs = append(orgs, &orgCopy)
	}
	return orgs, nil
}

func (r *OrganizationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status org.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orgs[id]
	if !ok {
		return org.ErrOrganizationNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OrganizationRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, tierID uuid.UUID, subStatus org.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orgs[id]
	if !ok {
		return org.ErrOrganizationNotFound
	}
	o.SubscriptionTierID = tierID
	o.SubscriptionStatus = subStatus
	o.UpdatedAt = time.Now().UTC()
	return nil
}
