package entity

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a snapshot of a table order. Items are captured at creation
// time; later menu edits do not touch historical orders.
type Order struct {
	ID                 string          `json:"id"`
	RestaurantID       string          `json:"restaurant_id"`
	TableID            string          `json:"table_id"`
	SessionID          string          `json:"session_id"`
	OrderNumber        string          `json:"order_number"`
	OrderStatus        OrderStatus     `json:"order_status"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	Items              []OrderItem     `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Tax                decimal.Decimal `json:"tax"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	Total              decimal.Decimal `json:"total"`
	RefundAmount       decimal.Decimal `json:"refund_amount"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type OrderItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Notes      string          `json:"notes,omitempty"`
	IsVeg      bool            `json:"is_veg"`
	ItemStatus ItemStatus      `json:"item_status"`
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber generates a human-readable order number of the form
// ORD-20260830-X7K2. Not globally unique; collisions within a day are
// accepted as improbable.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
