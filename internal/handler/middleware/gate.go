package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/avelora/keygate-api/internal/handler/dto"
	"github.com/avelora/keygate-api/internal/metrics"
	"github.com/avelora/keygate-api/internal/service"
	"github.com/avelora/keygate-api/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sourceHeader          = "X-Request-Source"
	gateResultContextKey  = "gateResult"
	tokenUsageContextKey  = "gateTokenUsage"
	rateLimitRetrySeconds = "60"
)

// RateLimiter is the per-minute counter the gate's decision feeds. Limit
// enforcement lives outside the gate on purpose: it needs a fast shared
// counter, not the authorization data model.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limitPerMinute int) bool
}

// GateMiddleware is the metered-request entry point. It extracts the bearer
// credential, digests it, asks the gate for a decision, enforces the
// effective per-minute limit, and on the way out records usage for the work
// actually performed. The raw credential never reaches logs or the gate.
func GateMiddleware(gate *service.GateService, limiter RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("GateMiddleware")
	return func(c *gin.Context) {
		rawKey, ok := bearerCredential(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.GateRejectionResponse{
				Code:    "missing_credentials",
				Message: "API key required",
			})
			return
		}

		source := usage.Source(c.GetHeader(sourceHeader))
		if !usage.ValidSource(source) {
			source = usage.SourceAPI
		}

		result := gate.Validate(c.Request.Context(), util.HashAPIKey(rawKey))
		if !result.Allowed {
			rejectRequest(c, result)
			return
		}

		if !limiter.Allow(c.Request.Context(), result.OrganizationID.String(), result.RateLimitPerMinute) {
			metrics.RateLimited.Inc()
			log.Debug("Request rate limited", zap.String("org_id", result.OrganizationID.String()))
			c.Header("Retry-After", rateLimitRetrySeconds)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.GateRejectionResponse{
				Code:    "rate_limited",
				Message: "Per-minute rate limit exceeded",
			})
			return
		}

		c.Set(gateResultContextKey, result)

		c.Next()

		// Aborted downstream means no work was performed; recording it
		// would double-count retries.
		if c.IsAborted() {
			return
		}

		// The request context dies when the client disconnects, but the
		// work was still performed and must be metered.
		gate.RecordUsage(context.WithoutCancel(c.Request.Context()), result.OrganizationID, time.Now().UTC(), source, c.FullPath(), 1, tokenUsage(c))
	}
}

func bearerCredential(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(authorizationHeader)
	if len(authHeader) <= len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", false
	}
	return authHeader[len(bearerPrefix):], true
}

func rejectRequest(c *gin.Context, result *service.ValidationResult) {
	status := http.StatusUnauthorized
	switch result.Reason {
	case service.ReasonOrganizationPaused, service.ReasonOrganizationSuspended,
		service.ReasonOrganizationRevoked, service.ReasonSubscriptionInactive:
		status = http.StatusForbidden
	case service.ReasonQuotaExceeded:
		status = http.StatusTooManyRequests
	}

	resp := dto.GateRejectionResponse{
		Code:    string(result.Reason),
		Message: rejectionMessage(result.Reason),
	}
	if result.Reason == service.ReasonQuotaExceeded && result.QuotaResetAt != nil {
		resp.RetryAfter = result.QuotaResetAt
		c.Header("Retry-After", strconv.FormatInt(int64(time.Until(*result.QuotaResetAt).Seconds()), 10))
	}

	c.AbortWithStatusJSON(status, resp)
}

func rejectionMessage(reason service.RejectReason) string {
	switch reason {
	case service.ReasonInvalidKey:
		return "Invalid API key"
	case service.ReasonKeyDisabled:
		return "API key has been revoked"
	case service.ReasonKeyExpired:
		return "API key has expired"
	case service.ReasonOrganizationPaused:
		return "Organization is paused"
	case service.ReasonOrganizationSuspended:
		return "Organization is suspended"
	case service.ReasonOrganizationRevoked:
		return "Organization has been revoked"
	case service.ReasonSubscriptionInactive:
		return "Subscription is not active"
	case service.ReasonQuotaExceeded:
		return "Monthly usage quota exceeded"
	}
	return "Request rejected"
}

// GateResultFromContext returns the gate decision stored for the current
// request, or nil outside a metered route.
func GateResultFromContext(c *gin.Context) *service.ValidationResult {
	value, exists := c.Get(gateResultContextKey)
	if !exists {
		return nil
	}
	result, ok := value.(*service.ValidationResult)
	if !ok {
		return nil
	}
	return result
}

// SetTokenUsage lets a handler report how many usage units the request
// consumed. Without a call the middleware records the default of one.
func SetTokenUsage(c *gin.Context, tokens int64) {
	c.Set(tokenUsageContextKey, tokens)
}

func tokenUsage(c *gin.Context) int64 {
	value, exists := c.Get(tokenUsageContextKey)
	if !exists {
		return 1
	}
	tokens, ok := value.(int64)
	if !ok || tokens <= 0 {
		return 1
	}
	return tokens
}
