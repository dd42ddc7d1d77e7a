package apikey

import (
	"time"

	"github.com/google/uuid"
)

type Environment string

const (
	EnvLive Environment = "live"
	EnvTest Environment = "test"
)

// DefaultScopes is assigned when a key is minted without explicit scopes.
var DefaultScopes = []string{"read"}

type APIKey struct {
	ID                uuid.UUID   `db:"id"`
	OrganizationID    uuid.UUID   `db:"organization_id"`
	SecretHash        string      `db:"secret_hash"`
	Prefix            string      `db:"prefix"`
	Environment       Environment `db:"environment"`
	Scopes            []string    `db:"scopes"`
	RateLimitOverride *int        `db:"rate_limit_override"`
	IsActive          bool        `db:"is_active"`
	ExpiresAt         *time.Time  `db:"expires_at"`
	LastUsedAt        *time.Time  `db:"last_used_at"`
	CreatedAt         time.Time   `db:"created_at"`
}

// Expired reports whether the key has passed its expiry. Expiry is computed
// at read time, never stored as a flag.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

const (
	SecretLength  = 32
	PrefixLength  = 8
	FullKeyFormat = "gk_%s_%s"
)
