package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/ierr"
	"github.com/avelora/keygate-api/internal/storage/memstorage"
	"github.com/avelora/keygate-api/internal/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type apikeyFixture struct {
	svc   *APIKeyService
	keys  *memstorage.APIKeyRepository
	orgs  *memstorage.OrganizationRepository
	orgID uuid.UUID
}

func newAPIKeyFixture(t *testing.T) *apikeyFixture {
	t.Helper()

	keys := memstorage.NewAPIKeyRepository()
	orgs := memstorage.NewOrganizationRepository()
	tiers := memstorage.NewTierRepository()

	tierID, err := tiers.Create(context.Background(), &tier.Tier{Name: "starter", RateLimitPerMinute: 60})
	if err != nil {
		t.Fatalf("seed tier: %v", err)
	}
	orgID, err := orgs.Create(context.Background(), &org.Organization{
		Name:               "acme",
		Status:             org.StatusActive,
		SubscriptionTierID: tierID,
		SubscriptionStatus: org.SubscriptionActive,
	})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}

	return &apikeyFixture{
		svc:   NewAPIKeyService(keys, orgs, zap.NewNop()),
		keys:  keys,
		orgs:  orgs,
		orgID: orgID,
	}
}

func TestCreateAPIKey(t *testing.T) {
	f := newAPIKeyFixture(t)

	resp, err := f.svc.CreateAPIKey(context.Background(), &dto.CreateAPIKeyRequest{
		OrganizationID: f.orgID,
		Environment:    "live",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(resp.FullKey, "gk_live_") {
		t.Errorf("full key %q does not carry the live environment marker", resp.FullKey)
	}
	if len(resp.Scopes) != 1 || resp.Scopes[0] != "read" {
		t.Errorf("scopes = %v, want the read default", resp.Scopes)
	}

	// The stored record holds the digest, never the raw secret.
	stored, err := f.keys.FindBySecretHash(context.Background(), util.HashAPIKey(resp.FullKey))
	if err != nil {
		t.Fatalf("digest lookup: %v", err)
	}
	if stored.ID != resp.ID {
		t.Errorf("digest lookup resolved key %s, want %s", stored.ID, resp.ID)
	}
	if stored.SecretHash == resp.FullKey || strings.Contains(stored.SecretHash, resp.FullKey) {
		t.Error("raw key material leaked into storage")
	}
	if !stored.IsActive {
		t.Error("fresh key should be active")
	}
}

func TestCreateAPIKeyUnknownOrganization(t *testing.T) {
	f := newAPIKeyFixture(t)

	_, err := f.svc.CreateAPIKey(context.Background(), &dto.CreateAPIKeyRequest{
		OrganizationID: uuid.New(),
		Environment:    "test",
	})
	if !errors.Is(err, ierr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateAPIKeyRevokedOrganization(t *testing.T) {
	f := newAPIKeyFixture(t)
	if err := f.orgs.UpdateStatus(context.Background(), f.orgID, org.StatusRevoked); err != nil {
		t.Fatalf("revoke org: %v", err)
	}

	_, err := f.svc.CreateAPIKey(context.Background(), &dto.CreateAPIKeyRequest{
		OrganizationID: f.orgID,
		Environment:    "live",
	})
	if !errors.Is(err, ierr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRevokeAPIKey(t *testing.T) {
	f := newAPIKeyFixture(t)

	resp, err := f.svc.CreateAPIKey(context.Background(), &dto.CreateAPIKeyRequest{
		OrganizationID: f.orgID,
		Environment:    "live",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.RevokeAPIKey(context.Background(), resp.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	listed, err := f.svc.ListAPIKeys(context.Background(), f.orgID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d keys, want 1", len(listed))
	}
	if listed[0].IsActive {
		t.Error("revoked key still listed as active")
	}
}
