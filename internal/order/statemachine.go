package order

import (
	"strings"

	"github.com/shopspring/decimal"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
	"restaurant-platform/internal/money"
)

// forward is the legal forward path of order_status. cancelled is handled
// separately by Cancel and is never a Transition target.
var forward = map[entity.OrderStatus]entity.OrderStatus{
	entity.OrderStatusPendingPayment: entity.OrderStatusReceived,
	entity.OrderStatusReceived:       entity.OrderStatusPreparing,
	entity.OrderStatusPreparing:      entity.OrderStatusReady,
	entity.OrderStatusReady:          entity.OrderStatusServed,
}

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is a staff-applied price reduction.
type Discount struct {
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Amount decimal.Decimal `json:"amount"`
}

// ComputeAmount resolves the absolute discount amount against a subtotal.
func (d Discount) ComputeAmount(subtotal decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountPercentage {
		return money.Round2(subtotal.Mul(d.Value).Div(decimal.NewFromInt(100)))
	}
	if !d.Amount.IsZero() {
		return d.Amount
	}
	return d.Value
}

// ValidateForCreation rejects orders that must never reach the store.
func ValidateForCreation(o *entity.Order) error {
	if len(o.Items) == 0 {
		return apperr.Validationf("order has no items")
	}
	if o.TableID == "" && o.SessionID == "" {
		return apperr.Validationf("order has no table or session reference")
	}
	if o.DiscountAmount.IsNegative() {
		return apperr.Validationf("discount amount cannot be negative")
	}
	if o.DiscountAmount.GreaterThan(o.Subtotal) {
		return apperr.Validationf("discount %s exceeds subtotal %s", o.DiscountAmount, o.Subtotal)
	}
	if !o.Subtotal.IsPositive() {
		return apperr.Validationf("order subtotal must be positive")
	}
	if !o.Total.IsPositive() {
		return apperr.Validationf("order total must be positive")
	}
	return nil
}

// Transition advances order_status along the forward path. Terminal states
// accept nothing; cancellation goes through Cancel, never here.
func Transition(o *entity.Order, to entity.OrderStatus) error {
	if to == entity.OrderStatusCancelled {
		return apperr.Transitionf("cancellation requires a reason, use cancel")
	}
	if o.OrderStatus.Terminal() {
		return apperr.Transitionf("order %s is %s", o.OrderNumber, o.OrderStatus)
	}
	if forward[o.OrderStatus] != to {
		return apperr.Transitionf("cannot move order %s from %s to %s", o.OrderNumber, o.OrderStatus, to)
	}
	o.OrderStatus = to
	return nil
}

// Cancel soft-cancels an order. Served orders cannot be cancelled, and a
// reason is mandatory.
func Cancel(o *entity.Order, reason string) error {
	if o.OrderStatus == entity.OrderStatusServed {
		return apperr.Transitionf("cannot cancel a served order")
	}
	if o.OrderStatus == entity.OrderStatusCancelled {
		return apperr.Transitionf("order %s is already cancelled", o.OrderNumber)
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.Validationf("cancellation reason is required")
	}
	o.OrderStatus = entity.OrderStatusCancelled
	o.CancellationReason = reason
	return nil
}

// ApplyDiscount validates and applies a discount, recomputing the total.
// The discount may not exceed the current subtotal.
func ApplyDiscount(o *entity.Order, d Discount) error {
	amount := d.ComputeAmount(o.Subtotal)
	if amount.IsNegative() {
		return apperr.Validationf("discount amount cannot be negative")
	}
	if amount.GreaterThan(o.Subtotal) {
		return apperr.Validationf("discount %s exceeds subtotal %s", amount, o.Subtotal)
	}
	o.DiscountAmount = amount
	o.Total = money.Round2(o.Subtotal.Add(o.Tax).Sub(amount))
	return nil
}

// MarkPaid records payment confirmation. Reapplying to an already-paid
// order is a no-op so duplicate gateway callbacks stay harmless.
func MarkPaid(o *entity.Order) error {
	if o.PaymentStatus == entity.PaymentStatusPaid {
		return nil
	}
	if o.PaymentStatus == entity.PaymentStatusRefunded {
		return apperr.Transitionf("order %s is already refunded", o.OrderNumber)
	}
	o.PaymentStatus = entity.PaymentStatusPaid
	if o.OrderStatus == entity.OrderStatusPendingPayment {
		o.OrderStatus = entity.OrderStatusReceived
	}
	return nil
}

// RecordRefund registers a refund capped at the order total.
func RecordRefund(o *entity.Order, amount decimal.Decimal) error {
	if o.PaymentStatus != entity.PaymentStatusPaid {
		return apperr.Transitionf("order %s is not paid", o.OrderNumber)
	}
	if amount.IsNegative() {
		return apperr.Validationf("refund amount cannot be negative")
	}
	if amount.GreaterThan(o.Total) {
		return apperr.Validationf("refund %s exceeds total %s", amount, o.Total)
	}
	o.RefundAmount = amount
	o.PaymentStatus = entity.PaymentStatusRefunded
	return nil
}
