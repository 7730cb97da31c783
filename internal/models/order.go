// Package models contains the domain structures shared between the business
// logic and the storage layer: orders, payment records, subscriptions and users.
package models

import "time"

// Order records the intent to charge before any money moves. The order ID is
// issued by the payment provider and is the primary key; an order is created
// once and never mutated or deleted.
type Order struct {
	OrderID      string    // Provider-issued order identifier
	UserUID      string    // Owning user
	Amount       int64     // Price in minor currency units
	Currency     string    // ISO currency code, e.g. "INR"
	BillingCycle string    // monthly, half_yearly or yearly
	Receipt      string    // Receipt reference sent to the provider
	CreatedAt    time.Time // When the order was created
}
