package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleOrder(status entity.OrderStatus) *entity.Order {
	return &entity.Order{
		ID:            "o1",
		OrderNumber:   "ORD-20260830-A1B2",
		OrderStatus:   status,
		PaymentStatus: entity.PaymentStatusPending,
		Items: []entity.OrderItem{
			{MenuItemID: "m1", Name: "Paneer Tikka", Price: d("200"), Quantity: 2},
			{MenuItemID: "m2", Name: "Lassi", Price: d("50"), Quantity: 1},
		},
		Subtotal: d("450"),
		Tax:      d("22.50"),
		Total:    d("472.50"),
	}
}

func TestTransitionForwardPath(t *testing.T) {
	o := sampleOrder(entity.OrderStatusPendingPayment)

	for _, next := range []entity.OrderStatus{
		entity.OrderStatusReceived,
		entity.OrderStatusPreparing,
		entity.OrderStatusReady,
		entity.OrderStatusServed,
	} {
		require.NoError(t, Transition(o, next))
		assert.Equal(t, next, o.OrderStatus)
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	tests := []struct {
		from entity.OrderStatus
		to   entity.OrderStatus
	}{
		{entity.OrderStatusPendingPayment, entity.OrderStatusPreparing},
		{entity.OrderStatusPendingPayment, entity.OrderStatusServed},
		{entity.OrderStatusReceived, entity.OrderStatusReady},
		{entity.OrderStatusPreparing, entity.OrderStatusServed},
		{entity.OrderStatusReady, entity.OrderStatusReceived}, // no going back
	}

	for _, tt := range tests {
		o := sampleOrder(tt.from)
		err := Transition(o, tt.to)
		assert.True(t, errors.Is(err, apperr.ErrInvalidTransition), "%s -> %s must fail", tt.from, tt.to)
		assert.Equal(t, tt.from, o.OrderStatus, "status must not change on rejected transition")
	}
}

func TestTransitionRejectsTerminalStates(t *testing.T) {
	for _, terminal := range []entity.OrderStatus{entity.OrderStatusServed, entity.OrderStatusCancelled} {
		o := sampleOrder(terminal)
		err := Transition(o, entity.OrderStatusReceived)
		assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	}
}

func TestTransitionRejectsCancelledTarget(t *testing.T) {
	o := sampleOrder(entity.OrderStatusReceived)
	err := Transition(o, entity.OrderStatusCancelled)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestCancel(t *testing.T) {
	for _, from := range []entity.OrderStatus{
		entity.OrderStatusPendingPayment,
		entity.OrderStatusReceived,
		entity.OrderStatusPreparing,
		entity.OrderStatusReady,
	} {
		o := sampleOrder(from)
		require.NoError(t, Cancel(o, "customer left"))
		assert.Equal(t, entity.OrderStatusCancelled, o.OrderStatus)
		assert.Equal(t, "customer left", o.CancellationReason)
	}
}

func TestCancelServedFails(t *testing.T) {
	o := sampleOrder(entity.OrderStatusServed)
	err := Cancel(o, "any reason at all")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	assert.Equal(t, entity.OrderStatusServed, o.OrderStatus)
}

func TestCancelRequiresReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		o := sampleOrder(entity.OrderStatusReceived)
		err := Cancel(o, reason)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "reason %q must be rejected", reason)
	}
}

func TestApplyDiscount(t *testing.T) {
	o := sampleOrder(entity.OrderStatusReceived)
	err := ApplyDiscount(o, Discount{Type: DiscountFixed, Amount: d("50")})
	require.NoError(t, err)
	assert.True(t, o.DiscountAmount.Equal(d("50")))
	assert.True(t, o.Total.Equal(d("422.50")), "got %s", o.Total)
}

func TestApplyDiscountPercentage(t *testing.T) {
	o := sampleOrder(entity.OrderStatusReceived)
	err := ApplyDiscount(o, Discount{Type: DiscountPercentage, Value: d("10")})
	require.NoError(t, err)
	assert.True(t, o.DiscountAmount.Equal(d("45")))
	assert.True(t, o.Total.Equal(d("427.50")), "got %s", o.Total)
}

func TestApplyDiscountExceedingSubtotalFails(t *testing.T) {
	o := sampleOrder(entity.OrderStatusReceived)
	err := ApplyDiscount(o, Discount{Type: DiscountFixed, Amount: d("450.01")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.True(t, o.DiscountAmount.IsZero(), "discount must not be applied")

	// Exactly the subtotal is allowed.
	err = ApplyDiscount(o, Discount{Type: DiscountFixed, Amount: d("450")})
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(d("22.50")), "got %s", o.Total)
}

func TestMarkPaidIdempotent(t *testing.T) {
	o := sampleOrder(entity.OrderStatusPendingPayment)

	require.NoError(t, MarkPaid(o))
	assert.Equal(t, entity.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, entity.OrderStatusReceived, o.OrderStatus)

	// Reapplying must change nothing and not error.
	totalBefore := o.Total
	require.NoError(t, MarkPaid(o))
	assert.Equal(t, entity.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, entity.OrderStatusReceived, o.OrderStatus)
	assert.True(t, o.Total.Equal(totalBefore))
	assert.True(t, o.RefundAmount.IsZero())
}

func TestMarkPaidDoesNotRewindKitchenState(t *testing.T) {
	o := sampleOrder(entity.OrderStatusPreparing)
	require.NoError(t, MarkPaid(o))
	assert.Equal(t, entity.OrderStatusPreparing, o.OrderStatus)
}

func TestRecordRefund(t *testing.T) {
	o := sampleOrder(entity.OrderStatusServed)
	o.PaymentStatus = entity.PaymentStatusPaid

	err := RecordRefund(o, d("472.51"))
	assert.True(t, errors.Is(err, apperr.ErrValidation), "refund above total must fail")

	require.NoError(t, RecordRefund(o, d("100")))
	assert.True(t, o.RefundAmount.Equal(d("100")))
	assert.Equal(t, entity.PaymentStatusRefunded, o.PaymentStatus)
}

func TestRecordRefundRequiresPaid(t *testing.T) {
	o := sampleOrder(entity.OrderStatusReceived)
	err := RecordRefund(o, d("10"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestValidateForCreation(t *testing.T) {
	o := sampleOrder(entity.OrderStatusPendingPayment)
	o.TableID = "T1"
	require.NoError(t, ValidateForCreation(o))

	empty := sampleOrder(entity.OrderStatusPendingPayment)
	empty.TableID = "T1"
	empty.Items = nil
	assert.True(t, errors.Is(ValidateForCreation(empty), apperr.ErrValidation))

	noRef := sampleOrder(entity.OrderStatusPendingPayment)
	noRef.TableID = ""
	noRef.SessionID = ""
	assert.True(t, errors.Is(ValidateForCreation(noRef), apperr.ErrValidation))

	zero := sampleOrder(entity.OrderStatusPendingPayment)
	zero.TableID = "T1"
	zero.Subtotal = decimal.Zero
	assert.True(t, errors.Is(ValidateForCreation(zero), apperr.ErrValidation))

	overDiscount := sampleOrder(entity.OrderStatusPendingPayment)
	overDiscount.TableID = "T1"
	overDiscount.DiscountAmount = d("450.01")
	assert.True(t, errors.Is(ValidateForCreation(overDiscount), apperr.ErrValidation))

	negDiscount := sampleOrder(entity.OrderStatusPendingPayment)
	negDiscount.TableID = "T1"
	negDiscount.DiscountAmount = d("-1")
	assert.True(t, errors.Is(ValidateForCreation(negDiscount), apperr.ErrValidation))
}
