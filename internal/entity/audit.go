package entity

import "time"

// Audit actions written by the payment verifier.
const (
	AuditPaymentVerified           = "payment_verified"
	AuditPaymentVerificationFailed = "payment_verification_failed"
)

// AuditEntry is an append-only record of security-relevant events.
type AuditEntry struct {
	ID           int64     `json:"id"`
	Action       string    `json:"action"`
	OrderID      string    `json:"order_id,omitempty"`
	PaymentID    string    `json:"payment_id,omitempty"`
	RestaurantID string    `json:"restaurant_id,omitempty"`
	RequestIP    string    `json:"request_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
