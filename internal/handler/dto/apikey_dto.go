package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateAPIKeyRequest struct {
	OrganizationID    uuid.UUID  `json:"organization_id" binding:"required"`
	Environment       string     `json:"environment" binding:"required,oneof=live test"`
	Scopes            []string   `json:"scopes,omitempty"`
	RateLimitOverride *int       `json:"rate_limit_override,omitempty" binding:"omitempty,gt=0"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse is the only place the raw key ever appears; it is
// returned once at mint time and never retrievable again.
type CreateAPIKeyResponse struct {
	ID             uuid.UUID  `json:"id"`
	FullKey        string     `json:"full_key"`
	Prefix         string     `json:"prefix"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Environment    string     `json:"environment"`
	Scopes         []string   `json:"scopes"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type APIKeyResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrganizationID    uuid.UUID  `json:"organization_id"`
	Prefix            string     `json:"prefix"`
	Environment       string     `json:"environment"`
	Scopes            []string   `json:"scopes"`
	RateLimitOverride *int       `json:"rate_limit_override,omitempty"`
	IsActive          bool       `json:"is_active"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
