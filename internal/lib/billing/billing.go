// Package billing defines the billing cycle tags, the static pricing table
// and the cycle-to-duration mapping used to compute entitlement windows.
package billing

// Billing cycle tags accepted at order creation.
const (
	CycleMonthly    = "monthly"
	CycleHalfYearly = "half_yearly"
	CycleYearly     = "yearly"
)

// Static pricing table in minor currency units.
var pricing = map[string]int64{
	CycleMonthly:    9900,
	CycleHalfYearly: 39900,
	CycleYearly:     99900,
}

// PriceFor returns the amount for the given billing cycle. The second
// return value is false for unknown cycle tags; callers at the API boundary
// treat that as a validation error.
func PriceFor(cycle string) (int64, bool) {
	amount, ok := pricing[cycle]
	return amount, ok
}

// ValidCycle reports whether cycle is one of the known billing cycle tags.
func ValidCycle(cycle string) bool {
	_, ok := pricing[cycle]
	return ok
}

// DurationMonths maps a billing cycle to its entitlement duration in months.
// Unknown tags fall back to one month: a payment that already succeeded with
// a malformed cycle tag must not be hard-failed here.
func DurationMonths(cycle string) int {
	switch cycle {
	case CycleHalfYearly:
		return 6
	case CycleYearly:
		return 12
	default:
		return 1
	}
}
