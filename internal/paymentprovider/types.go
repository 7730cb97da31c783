package paymentprovider

// CreateOrderRequest is the payload for the provider orders API. Notes carry
// the user UID and billing cycle set at order creation; webhook events echo
// them back and they are the only trustworthy source of identity on that
// path.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrderResponse is the provider's order object. ID is the
// provider-issued order identifier the rest of the system keys on.
type CreateOrderResponse struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}
