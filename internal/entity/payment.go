package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the row written when a gateway callback arrives. It is not
// trusted until the signature has been recomputed server-side.
type Payment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	RestaurantID     string          `json:"restaurant_id"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
	Amount           decimal.Decimal `json:"amount"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	Verified         bool            `json:"payment_verified"`
	VerifiedAt       *time.Time      `json:"verified_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// GatewayCredential is a per-tenant signing secret. When a restaurant has
// no active credential the platform-wide secret is used instead.
type GatewayCredential struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	KeyID        string    `json:"key_id"`
	KeySecret    string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
