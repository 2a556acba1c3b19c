package entity

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-platform/internal/apperr"
)

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^ORD-20260830-[0-9A-Z]{4}$`)

	for i := 0; i < 20; i++ {
		n := NewOrderNumber(now)
		assert.True(t, pattern.MatchString(n), "unexpected order number %q", n)
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"pending_payment", "received", "preparing", "ready", "served", "cancelled"} {
		s, err := ParseOrderStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, OrderStatus(valid), s)
	}

	_, err := ParseOrderStatus("shipped")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestParsePaymentStatus(t *testing.T) {
	_, err := ParsePaymentStatus("paid")
	require.NoError(t, err)

	_, err = ParsePaymentStatus("chargeback")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestParseSubscriptionStatus(t *testing.T) {
	_, err := ParseSubscriptionStatus("grace")
	require.NoError(t, err)

	_, err = ParseSubscriptionStatus("paused")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusServed.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPendingPayment.Terminal())
	assert.False(t, OrderStatusReady.Terminal())
}

func TestParseChangeEvent(t *testing.T) {
	row, _ := json.Marshal(map[string]string{"id": "o1"})
	good, _ := json.Marshal(ChangeEvent{
		Type:            EventUpdate,
		Table:           "orders",
		Row:             row,
		CommitTimestamp: time.Now(),
	})

	ev, err := ParseChangeEvent(good)
	require.NoError(t, err)
	assert.Equal(t, "orders", ev.Table)

	_, err = ParseChangeEvent([]byte(`{"type":"TRUNCATE"}`))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = ParseChangeEvent([]byte(`{"type":"INSERT","table":"orders"}`))
	assert.True(t, errors.Is(err, apperr.ErrValidation), "missing commit timestamp must be rejected")

	_, err = ParseChangeEvent([]byte(`not json`))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
