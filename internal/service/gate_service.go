package service

import (
	"context"
	"errors"
	"time"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/avelora/keygate-api/internal/domain/org"
	"github.com/avelora/keygate-api/internal/domain/tier"
	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/avelora/keygate-api/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RejectReason string

const (
	ReasonInvalidKey            RejectReason = "invalid_key"
	ReasonKeyDisabled           RejectReason = "key_disabled"
	ReasonKeyExpired            RejectReason = "key_expired"
	ReasonOrganizationPaused    RejectReason = "organization_paused"
	ReasonOrganizationSuspended RejectReason = "organization_suspended"
	ReasonOrganizationRevoked   RejectReason = "organization_revoked"
	ReasonSubscriptionInactive  RejectReason = "subscription_inactive"
	ReasonQuotaExceeded         RejectReason = "quota_exceeded"
)

// ValidationResult is the gate's decision for one presented credential.
// When Allowed is false, Reason holds exactly one rejection reason; the
// remaining fields are populated only on an allowed result, except
// QuotaResetAt which accompanies quota_exceeded as a retry hint.
type ValidationResult struct {
	Allowed            bool
	Reason             RejectReason
	KeyID              uuid.UUID
	OrganizationID     uuid.UUID
	TierID             uuid.UUID
	Scopes             []string
	RateLimitPerMinute int
	MonthlyTokenLimit  *int64
	QuotaResetAt       *time.Time
}

// GateService is the authorization decision point every metered request
// passes through. It resolves a key digest to an allow/deny decision plus
// the limits the gateway should enforce. It holds no cross-request state:
// the database is the single source of truth, so revokes, pauses and quota
// transitions take effect on the next request.
type GateService struct {
	keys   apikey.Repository
	orgs   org.Repository
	tiers  tier.Repository
	usage  usage.Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewGateService(keys apikey.Repository, orgs org.Repository, tiers tier.Repository, usageRepo usage.Repository, logger *zap.Logger) *GateService {
	return &GateService{
		keys:   keys,
		orgs:   orgs,
		tiers:  tiers,
		usage:  usageRepo,
		logger: logger.Named("GateService"),
		now:    time.Now,
	}
}

// Validate runs the guard checks in their fixed order; the first match wins.
// The order is a contract with the gateway, not an implementation detail.
// Infrastructure faults fail closed into invalid_key: the real cause is
// logged, the generic reason is what crosses the API boundary.
func (s *GateService) Validate(ctx context.Context, secretHash string) *ValidationResult {
	now := s.now()

	key, err := s.keys.FindBySecretHash(ctx, secretHash)
	if err != nil {
		if !errors.Is(err, apikey.ErrAPIKeyNotFound) {
			return s.failClosed("api key lookup failed", err)
		}
		return s.rejected(ReasonInvalidKey)
	}

	if !key.IsActive {
		return s.rejected(ReasonKeyDisabled)
	}

	if key.Expired(now) {
		return s.rejected(ReasonKeyExpired)
	}

	owner, err := s.orgs.FindByID(ctx, key.OrganizationID)
	if err != nil {
		return s.failClosed("organization lookup failed", err,
			zap.String("org_id", key.OrganizationID.String()))
	}

	switch owner.Status {
	case org.StatusActive:
	case org.StatusPaused:
		return s.rejected(ReasonOrganizationPaused)
	case org.StatusSuspended:
		return s.rejected(ReasonOrganizationSuspended)
	case org.StatusRevoked:
		return s.rejected(ReasonOrganizationRevoked)
	default:
		return s.failClosed("organization has unknown status", nil,
			zap.String("org_id", owner.ID.String()),
			zap.String("status", string(owner.Status)))
	}

	if !owner.SubscriptionServing() {
		return s.rejected(ReasonSubscriptionInactive)
	}

	planTier, err := s.tiers.FindByID(ctx, owner.SubscriptionTierID)
	if err != nil {
		return s.failClosed("tier lookup failed", err,
			zap.String("org_id", owner.ID.String()),
			zap.String("tier_id", owner.SubscriptionTierID.String()))
	}

	if planTier.MonthlyTokenLimit != nil {
		totals, err := s.usage.SumSince(ctx, owner.ID, usage.MonthStart(now))
		if err != nil {
			return s.failClosed("monthly usage lookup failed", err,
				zap.String("org_id", owner.ID.String()))
		}
		if totals.TotalTokens >= *planTier.MonthlyTokenLimit {
			resetAt := usage.NextMonthStart(now)
			res := s.rejected(ReasonQuotaExceeded)
			res.QuotaResetAt = &resetAt
			return res
		}
	}

	effectiveLimit := planTier.RateLimitPerMinute
	if key.RateLimitOverride != nil {
		effectiveLimit = *key.RateLimitOverride
	}

	// Telemetry, not a correctness gate: the request must not wait on or
	// fail because of this write.
	go func(id uuid.UUID, usedAt time.Time) {
		touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.keys.TouchLastUsed(touchCtx, id, usedAt); err != nil {
			s.logger.Error("Failed to advance api key last_used_at",
				zap.String("key_id", id.String()), zap.Error(err))
		}
	}(key.ID, now.UTC())

	metrics.GateDecisions.WithLabelValues("allowed").Inc()
	return &ValidationResult{
		Allowed:            true,
		KeyID:              key.ID,
		OrganizationID:     owner.ID,
		TierID:             planTier.ID,
		Scopes:             key.Scopes,
		RateLimitPerMinute: effectiveLimit,
		MonthlyTokenLimit:  planTier.MonthlyTokenLimit,
	}
}

func (s *GateService) rejected(reason RejectReason) *ValidationResult {
	metrics.GateDecisions.WithLabelValues(string(reason)).Inc()
	s.logger.Debug("Gate rejected request", zap.String("reason", string(reason)))
	return &ValidationResult{Allowed: false, Reason: reason}
}

func (s *GateService) failClosed(msg string, err error, fields ...zap.Field) *ValidationResult {
	fields = append(fields, zap.Error(err))
	s.logger.Error("Gate failing closed: "+msg, fields...)
	metrics.GateDecisions.WithLabelValues(string(ReasonInvalidKey)).Inc()
	return &ValidationResult{Allowed: false, Reason: ReasonInvalidKey}
}

// RecordUsage adds the request to the daily aggregate. Errors are logged and
// swallowed: an outage in usage accounting must never block serving.
// Non-positive deltas default to 1.
func (s *GateService) RecordUsage(ctx context.Context, orgID uuid.UUID, date time.Time, source usage.Source, endpoint string, requestDelta, tokenDelta int64) {
	if requestDelta <= 0 {
		requestDelta = 1
	}
	if tokenDelta <= 0 {
		tokenDelta = 1
	}
	if !usage.ValidSource(source) {
		s.logger.Warn("Unknown usage source, recording as api", zap.String("source", string(source)))
		source = usage.SourceAPI
	}

	if err := s.usage.Increment(ctx, orgID, date, source, endpoint, requestDelta, tokenDelta); err != nil {
		metrics.UsageRecordFailures.Inc()
		s.logger.Error("Failed to record usage",
			zap.String("org_id", orgID.String()),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}
}

// MonthlyUsage returns month-to-date totals for the organization together
// with the start of the billing window the totals were summed over, so
// callers report the same window they read.
func (s *GateService) MonthlyUsage(ctx context.Context, orgID uuid.UUID) (*usage.MonthlyTotals, time.Time, error) {
	monthStart := usage.MonthStart(s.now())
	totals, err := s.usage.SumSince(ctx, orgID, monthStart)
	return totals, monthStart, err
}
