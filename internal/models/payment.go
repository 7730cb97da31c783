package models

import "time"

// Payment record statuses. A record starts as created and moves exactly once
// to captured or failed; both the verify path and the webhook path may apply
// the terminal transition, so the update must stay safe to repeat.
const (
	PaymentStatusCreated  = "created"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
)

// PaymentRecord tracks the lifecycle of a payment attempt against an order.
// PaymentID and Signature stay nil until the payment is captured.
type PaymentRecord struct {
	ID        int        // Surrogate key
	OrderID   string     // Provider order identifier, unique per record
	PaymentID *string    // Provider payment identifier, set on capture
	Signature *string    // Client-reported signature, set on capture via verify
	Status    string     // created, captured or failed
	UpdatedAt time.Time  // Last status transition
}
