package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/avelora/keygate-api/internal/storage/memstorage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fixedNow is mid-month so tests can place usage on either side of the
// month boundary.
var fixedNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type gateFixture struct {
	keys  *memstorage.APIKeyRepository
	orgs  *memstorage.OrganizationRepository
	tiers *memstorage.TierRepository
	usage *memstorage.UsageRepository
	svc   *GateService

	tierID uuid.UUID
	orgID  uuid.UUID
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	f := &gateFixture{
		keys:  memstorage.NewAPIKeyRepository(),
		orgs:  memstorage.NewOrganizationRepository(),
		tiers: memstorage.NewTierRepository(),
		usage: memstorage.NewUsageRepository(),
	}
	f.svc = NewGateService(f.keys, f.orgs, f.tiers, f.usage, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }

	limit := int64(1000)
	tierID, err := f.tiers.Create(context.Background(), &tier.Tier{
		Name:               "starter",
		MonthlyTokenLimit:  &limit,
		RateLimitPerMinute: 60,
	})
	if err != nil {
		t.Fatalf("seed tier: %v", err)
	}
	f.tierID = tierID

	orgID, err := f.orgs.Create(context.Background(), &org.Organization{
		Name:               "acme",
		Status:             org.StatusActive,
		SubscriptionTierID: tierID,
		SubscriptionStatus: org.SubscriptionActive,
	})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	f.orgID = orgID

	return f
}

func (f *gateFixture) seedKey(t *testing.T, mutate func(*apikey.APIKey)) string {
	t.Helper()

	secretHash := "hash-" + uuid.NewString()
	key := &apikey.APIKey{
		OrganizationID: f.orgID,
		SecretHash:     secretHash,
		Prefix:         "abcd1234",
		Environment:    apikey.EnvLive,
		Scopes:         []string{"read"},
		IsActive:       true,
	}
	if mutate != nil {
		mutate(key)
	}
	if _, err := f.keys.Create(context.Background(), key); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	return secretHash
}

func (f *gateFixture) addTokens(t *testing.T, day time.Time, tokens int64) {
	t.Helper()
	if err := f.usage.Increment(context.Background(), f.orgID, day, usage.SourceAPI, "/v1/things", 1, tokens); err != nil {
		t.Fatalf("seed usage: %v", err)
	}
}

func TestValidateAllowed(t *testing.T) {
	f := newGateFixture(t)
	hash := f.seedKey(t, nil)
	f.addTokens(t, fixedNow.AddDate(0, 0, -3), 500)

	res := f.svc.Validate(context.Background(), hash)
	if !res.Allowed {
		t.Fatalf("expected allowed, got rejection %q", res.Reason)
	}
	if res.OrganizationID != f.orgID {
		t.Errorf("organization id = %s, want %s", res.OrganizationID, f.orgID)
	}
	if res.TierID != f.tierID {
		t.Errorf("tier id = %s, want %s", res.TierID, f.tierID)
	}
	if res.RateLimitPerMinute != 60 {
		t.Errorf("rate limit = %d, want tier default 60", res.RateLimitPerMinute)
	}
	if res.MonthlyTokenLimit == nil || *res.MonthlyTokenLimit != 1000 {
		t.Errorf("monthly token limit = %v, want 1000", res.MonthlyTokenLimit)
	}

	// Repeated validation returns the same allowed fields.
	again := f.svc.Validate(context.Background(), hash)
	if !again.Allowed || again.OrganizationID != res.OrganizationID || again.RateLimitPerMinute != res.RateLimitPerMinute {
		t.Errorf("repeated validation changed the allowed fields: %+v vs %+v", again, res)
	}
}

func TestValidateUnknownHash(t *testing.T) {
	f := newGateFixture(t)

	res := f.svc.Validate(context.Background(), "no-such-hash")
	if res.Allowed || res.Reason != ReasonInvalidKey {
		t.Fatalf("expected invalid_key, got %+v", res)
	}
}

func TestValidateKeyDisabled(t *testing.T) {
	f := newGateFixture(t)
	hash := f.seedKey(t, func(k *apikey.APIKey) { k.IsActive = false })

	res := f.svc.Validate(context.Background(), hash)
	if res.Allowed || res.Reason != ReasonKeyDisabled {
		t.Fatalf("expected key_disabled, got %+v", res)
	}
}

func TestValidateKeyExpired(t *testing.T) {
	f := newGateFixture(t)
	past := fixedNow.AddDate(0, -1, 0)
	hash := f.seedKey(t, func(k *apikey.APIKey) { k.ExpiresAt = &past })

	res := f.svc.Validate(context.Background(), hash)
	if res.Allowed || res.Reason != ReasonKeyExpired {
		t.Fatalf("expected key_expired, got %+v", res)
	}
}

func TestValidateDisabledWinsOverExpired(t *testing.T) {
	f := newGateFixture(t)
	past := fixedNow.AddDate(0, -1, 0)
	hash := f.seedKey(t, func(k *apikey.APIKey) {
		k.IsActive = false
		k.ExpiresAt = &past
	})

	res := f.svc.Validate(context.Background(), hash)
	if res.Reason != ReasonKeyDisabled {
		t.Fatalf("check order violated: expected key_disabled before key_expired, got %q", res.Reason)
	}
}

func TestValidateOrganizationStatuses(t *testing.T) {
	cases := []struct {
		status org.Status
		want   RejectReason
	}{
		{org.StatusPaused, ReasonOrganizationPaused},
		{org.StatusSuspended, ReasonOrganizationSuspended},
		{org.StatusRevoked, ReasonOrganizationRevoked},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newGateFixture(t)
			hash := f.seedKey(t, nil)
			if err := f.orgs.UpdateStatus(context.Background(), f.orgID, tc.status); err != nil {
				t.Fatalf("update status: %v", err)
			}

			res := f.svc.Validate(context.Background(), hash)
			if res.Allowed || res.Reason != tc.want {
				t.Fatalf("expected %q, got %+v", tc.want, res)
			}
		})
	}
}

func TestValidateSubscriptionStates(t *testing.T) {
	blocked := []org.SubscriptionStatus{org.SubscriptionPastDue, org.SubscriptionCanceled}
	for _, status := range blocked {
		t.Run(string(status), func(t *testing.T) {
			f := newGateFixture(t)
			hash := f.seedKey(t, nil)
			if err := f.orgs.UpdateSubscription(context.Background(), f.orgID, f.tierID, status); err != nil {
				t.Fatalf("update subscription: %v", err)
			}

			res := f.svc.Validate(context.Background(), hash)
			if res.Allowed || res.Reason != ReasonSubscriptionInactive {
				t.Fatalf("expected subscription_inactive, got %+v", res)
			}
		})
	}

	t.Run("trialing serves", func(t *testing.T) {
		f := newGateFixture(t)
		hash := f.seedKey(t, nil)
		if err := f.orgs.UpdateSubscription(context.Background(), f.orgID, f.tierID, org.SubscriptionTrialing); err != nil {
			t.Fatalf("update subscription: %v", err)
		}

		if res := f.svc.Validate(context.Background(), hash); !res.Allowed {
			t.Fatalf("trialing organization should be allowed, got %q", res.Reason)
		}
	})
}

func TestValidateQuotaExceeded(t *testing.T) {
	f := newGateFixture(t)
	hash := f.seedKey(t, nil)
	f.addTokens(t, fixedNow.AddDate(0, 0, -5), 1000)

	res := f.svc.Validate(context.Background(), hash)
	if res.Allowed || res.Reason != ReasonQuotaExceeded {
		t.Fatalf("expected quota_exceeded at the limit boundary, got %+v", res)
	}
	if res.QuotaResetAt == nil {
		t.Fatal("quota_exceeded must carry a reset hint")
	}
	wantReset := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !res.QuotaResetAt.Equal(wantReset) {
		t.Errorf("quota reset = %v, want %v", res.QuotaResetAt, wantReset)
	}

	// Every further call this month keeps rejecting.
	for i := 0; i < 3; i++ {
		if res := f.svc.Validate(context.Background(), hash); res.Reason != ReasonQuotaExceeded {
			t.Fatalf("call %d: expected quota_exceeded, got %q", i, res.Reason)
		}
	}
}

func TestValidateQuotaIgnoresPreviousMonth(t *testing.T) {
	f := newGateFixture(t)
	hash := f.seedKey(t, nil)
	f.addTokens(t, time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC), 5000)

	res := f.svc.Validate(context.Background(), hash)
	if !res.Allowed {
		t.Fatalf("previous month usage must not count toward this month's quota, got %q", res.Reason)
	}
}

func TestValidateUnlimitedTier(t *testing.T) {
	f := newGateFixture(t)
	unlimitedID, err := f.tiers.Create(context.Background(), &tier.Tier{
		Name:               "enterprise",
		RateLimitPerMinute: 600,
	})
	if err != nil {
		t.Fatalf("seed tier: %v", err)
	}
	if err := f.orgs.UpdateSubscription(context.Background(), f.orgID, unlimitedID, org.SubscriptionActive); err != nil {
		t.Fatalf("update subscription: %v", err)
	}
	hash := f.seedKey(t, nil)
	f.addTokens(t, fixedNow.AddDate(0, 0, -1), 1_000_000)

	res := f.svc.Validate(context.Background(), hash)
	if !res.Allowed {
		t.Fatalf("unlimited tier must never hit quota, got %q", res.Reason)
	}
	if res.MonthlyTokenLimit != nil {
		t.Errorf("unlimited tier should surface a nil token limit, got %d", *res.MonthlyTokenLimit)
	}
}

func TestValidateRateLimitOverrideWins(t *testing.T) {
	f := newGateFixture(t)
	override := 500
	hash := f.seedKey(t, func(k *apikey.APIKey) { k.RateLimitOverride = &override })

	res := f.svc.Validate(context.Background(), hash)
	if !res.Allowed {
		t.Fatalf("expected allowed, got %q", res.Reason)
	}
	if res.RateLimitPerMinute != 500 {
		t.Errorf("effective rate limit = %d, want the key override 500", res.RateLimitPerMinute)
	}
}

func TestValidateFailsClosedOnDanglingReferences(t *testing.T) {
	t.Run("missing organization", func(t *testing.T) {
		f := newGateFixture(t)
		hash := f.seedKey(t, func(k *apikey.APIKey) { k.OrganizationID = uuid.New() })

		res := f.svc.Validate(context.Background(), hash)
		if res.Allowed || res.Reason != ReasonInvalidKey {
			t.Fatalf("expected fail-closed invalid_key, got %+v", res)
		}
	})

	t.Run("missing tier", func(t *testing.T) {
		f := newGateFixture(t)
		hash := f.seedKey(t, nil)
		if err := f.orgs.UpdateSubscription(context.Background(), f.orgID, uuid.New(), org.SubscriptionActive); err != nil {
			t.Fatalf("update subscription: %v", err)
		}

		res := f.svc.Validate(context.Background(), hash)
		if res.Allowed || res.Reason != ReasonInvalidKey {
			t.Fatalf("expected fail-closed invalid_key, got %+v", res)
		}
	})
}

func TestValidateAdvancesLastUsed(t *testing.T) {
	f := newGateFixture(t)
	hash := f.seedKey(t, nil)

	if res := f.svc.Validate(context.Background(), hash); !res.Allowed {
		t.Fatalf("expected allowed, got %q", res.Reason)
	}

	// The touch is async; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		key, err := f.keys.FindBySecretHash(context.Background(), hash)
		if err != nil {
			t.Fatalf("find key: %v", err)
		}
		if key.LastUsedAt != nil {
			if !key.LastUsedAt.Equal(fixedNow.UTC()) {
				t.Errorf("last_used_at = %v, want %v", key.LastUsedAt, fixedNow.UTC())
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("last_used_at was never advanced")
}

func TestRecordUsageDefaultsDeltas(t *testing.T) {
	f := newGateFixture(t)

	f.svc.RecordUsage(context.Background(), f.orgID, fixedNow, usage.SourceCLI, "/v1/things", 0, 0)

	totals, err := f.usage.SumSince(context.Background(), f.orgID, usage.MonthStart(fixedNow))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if totals.TotalRequests != 1 || totals.TotalTokens != 1 {
		t.Errorf("totals = %+v, want one request and one token", totals)
	}
}

func TestRecordUsageCoercesUnknownSource(t *testing.T) {
	f := newGateFixture(t)

	f.svc.RecordUsage(context.Background(), f.orgID, fixedNow, usage.Source("browser"), "/v1/things", 1, 1)

	totals, err := f.usage.SumSince(context.Background(), f.orgID, usage.MonthStart(fixedNow))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if totals.TotalRequests != 1 {
		t.Errorf("unknown source should still be recorded, totals = %+v", totals)
	}
}

type failingUsageRepo struct {
	usage.Repository
}

func (f *failingUsageRepo) Increment(ctx context.Context, orgID uuid.UUID, date time.Time, source usage.Source, endpoint string, requestDelta, tokenDelta int64) error {
	return context.DeadlineExceeded
}

func TestRecordUsageSwallowsErrors(t *testing.T) {
	f := newGateFixture(t)
	svc := NewGateService(f.keys, f.orgs, f.tiers, &failingUsageRepo{Repository: f.usage}, zap.NewNop())

	// Must not panic or propagate anything.
	svc.RecordUsage(context.Background(), f.orgID, fixedNow, usage.SourceAPI, "/v1/things", 1, 1)
}

func TestRecordUsageConcurrentIncrements(t *testing.T) {
	f := newGateFixture(t)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			f.svc.RecordUsage(context.Background(), f.orgID, fixedNow, usage.SourceAPI, "/v1/things", 1, 1)
		}()
	}
	wg.Wait()

	totals, err := f.usage.SumSince(context.Background(), f.orgID, usage.MonthStart(fixedNow))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if totals.TotalRequests != n || totals.TotalTokens != n {
		t.Errorf("lost updates under concurrency: totals = %+v, want %d/%d", totals, n, n)
	}
}

func TestMonthlyUsageCurrentMonthOnly(t *testing.T) {
	f := newGateFixture(t)
	f.addTokens(t, time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC), 700)
	f.addTokens(t, time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC), 300)

	totals, monthStart, err := f.svc.MonthlyUsage(context.Background(), f.orgID)
	if err != nil {
		t.Fatalf("monthly usage: %v", err)
	}
	if totals.TotalTokens != 300 {
		t.Errorf("monthly tokens = %d, want only the current month's 300", totals.TotalTokens)
	}
	wantStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !monthStart.Equal(wantStart) {
		t.Errorf("month start = %v, want the service clock's %v", monthStart, wantStart)
	}
}
