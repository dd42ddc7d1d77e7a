package org

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionTrialing SubscriptionStatus = "trialing"
)

type Organization struct {
	ID                 uuid.UUID          `db:"id"`
	Name               string             `db:"name"`
	Status             Status             `db:"status"`
	SubscriptionTierID uuid.UUID          `db:"subscription_tier_id"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status"`
	CreatedAt          time.Time          `db:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at"`
}

// SubscriptionServing reports whether the subscription state permits serving
// requests. Only active and trialing subscriptions do.
func (o *Organization) SubscriptionServing() bool {
	return o.SubscriptionStatus == SubscriptionActive || o.SubscriptionStatus == SubscriptionTrialing
}

// CanTransition encodes the organization lifecycle: active and paused are
// interchangeable, suspension is reversible by an admin, revoked is terminal.
func CanTransition(from, to Status) bool {
	if from == StatusRevoked {
		return false
	}
	switch to {
	case StatusRevoked:
		return true
	case StatusActive:
		return from == StatusPaused || from == StatusSuspended
	case StatusPaused:
		return from == StatusActive
	case StatusSuspended:
		return from == StatusActive || from == StatusPaused
	}
	return false
}
