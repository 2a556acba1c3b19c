package entity

import "restaurant-platform/internal/apperr"

// OrderStatus is the kitchen-facing lifecycle axis of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusReceived       OrderStatus = "received"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusServed         OrderStatus = "served"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus is the money-facing axis, independent from OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// SubscriptionStatus is the tenant billing lifecycle.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusGrace     SubscriptionStatus = "grace"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// ItemStatus tracks a single order line on the kitchen display.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
)

// ParseOrderStatus validates a raw status string at the row boundary.
// Rows never reach state-machine logic with an unknown status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPendingPayment, OrderStatusReceived, OrderStatusPreparing,
		OrderStatusReady, OrderStatusServed, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", apperr.Validationf("unknown order status %q", s)
}

// ParsePaymentStatus validates a raw payment status string.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return PaymentStatus(s), nil
	}
	return "", apperr.Validationf("unknown payment status %q", s)
}

// ParseSubscriptionStatus validates a raw subscription status string.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusGrace,
		SubscriptionStatusSuspended, SubscriptionStatusCancelled:
		return SubscriptionStatus(s), nil
	}
	return "", apperr.Validationf("unknown subscription status %q", s)
}

// Terminal reports whether no further order transitions are legal.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusServed || s == OrderStatusCancelled
}
