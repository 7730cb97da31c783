package models

import "time"

// Subscription plans and statuses.
const (
	PlanFree = "free"
	PlanPro  = "pro"

	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is the single entitlement row per user, keyed by UserUID.
// It does not exist until the first captured payment; afterwards every
// captured payment replaces it in place.
type Subscription struct {
	UserUID      string     // Owning user, primary key
	Plan         string     // free or pro
	BillingCycle string     // monthly, half_yearly or yearly
	Status       string     // active, expired or cancelled
	StartedAt    time.Time  // Start of the current entitlement window
	ExpiresAt    *time.Time // End of the window, nil means no expiry
	UpdatedAt    time.Time  // Last write
}

// IsPro derives the effective entitlement at read time. Expiry crossing is
// detected lazily here, never by a background sweep.
func (s *Subscription) IsPro(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Plan != PlanPro || s.Status != SubscriptionStatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
