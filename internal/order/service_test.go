package order

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

type fakeStore struct {
	orders map[string]*entity.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*entity.Order)}
}

func (f *fakeStore) CreateOrder(ctx context.Context, o *entity.Order) (*entity.Order, error) {
	cp := *o
	f.orders[o.ID] = &cp
	return o, nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id string) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateOrder(ctx context.Context, o *entity.Order) error {
	if _, ok := f.orders[o.ID]; !ok {
		return apperr.ErrOrderNotFound
	}
	cp := *o
	cp.Version++
	f.orders[o.ID] = &cp
	o.Version++
	return nil
}

func (f *fakeStore) ListOrdersByRestaurant(ctx context.Context, restaurantID string) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, o := range f.orders {
		if o.RestaurantID == restaurantID {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, nil, nil), store
}

func draftOrder() *entity.Order {
	return &entity.Order{
		RestaurantID: "r1",
		TableID:      "T4",
		Items: []entity.OrderItem{
			{MenuItemID: "m1", Name: "Masala Dosa", Price: d("200"), Quantity: 2},
			{MenuItemID: "m2", Name: "Filter Coffee", Price: d("50"), Quantity: 1},
		},
	}
}

func TestServiceCreateOrder(t *testing.T) {
	svc, store := newTestService()

	created, err := svc.CreateOrder(context.Background(), draftOrder(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9A-Z]{4}$`), created.OrderNumber)
	assert.Equal(t, entity.OrderStatusPendingPayment, created.OrderStatus)
	assert.Equal(t, entity.PaymentStatusPending, created.PaymentStatus)
	assert.True(t, created.Subtotal.Equal(d("450")))
	assert.True(t, created.Tax.Equal(d("22.50")))
	assert.True(t, created.Total.Equal(d("472.50")))
	assert.Equal(t, 1, created.Version)

	stored, err := store.GetOrderByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.OrderNumber, stored.OrderNumber)
}

func TestServiceCreateOrderRejectsEmpty(t *testing.T) {
	svc, _ := newTestService()

	o := draftOrder()
	o.Items = nil
	_, err := svc.CreateOrder(context.Background(), o, "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestServiceCreateOrderValidatesDiscount(t *testing.T) {
	svc, store := newTestService()

	// A client-supplied discount above the subtotal must never persist.
	over := draftOrder()
	over.DiscountAmount = d("460")
	_, err := svc.CreateOrder(context.Background(), over, "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Empty(t, store.orders, "rejected order must not be stored")

	neg := draftOrder()
	neg.DiscountAmount = d("-100")
	_, err = svc.CreateOrder(context.Background(), neg, "")
	assert.True(t, errors.Is(err, apperr.ErrValidation), "negative discount must be rejected")

	// A legitimate discount still flows into the total.
	ok := draftOrder()
	ok.DiscountAmount = d("50")
	created, err := svc.CreateOrder(context.Background(), ok, "")
	require.NoError(t, err)
	assert.True(t, created.Total.Equal(d("422.50")), "got %s", created.Total)
}

func TestServiceCancelOrder(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.CreateOrder(context.Background(), draftOrder(), "")
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(context.Background(), created.ID, "customer left")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.OrderStatus)

	_, err = svc.CancelOrder(context.Background(), created.ID, "again")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestServiceMarkOrderPaidTwice(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.CreateOrder(context.Background(), draftOrder(), "")
	require.NoError(t, err)

	first, err := svc.MarkOrderPaid(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReceived, first.OrderStatus)

	second, err := svc.MarkOrderPaid(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReceived, second.OrderStatus)
	assert.Equal(t, entity.PaymentStatusPaid, second.PaymentStatus)
	assert.True(t, second.Total.Equal(first.Total))
	assert.True(t, second.RefundAmount.IsZero())
}

func TestServiceApplyDiscount(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.CreateOrder(context.Background(), draftOrder(), "")
	require.NoError(t, err)

	updated, err := svc.ApplyOrderDiscount(context.Background(), created.ID, Discount{Type: DiscountFixed, Amount: d("100")})
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(d("372.50")), "got %s", updated.Total)

	_, err = svc.ApplyOrderDiscount(context.Background(), created.ID, Discount{Type: DiscountFixed, Amount: d("1000")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestServiceUnknownOrder(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetOrder(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperr.ErrOrderNotFound))
}
