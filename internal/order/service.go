package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
	"restaurant-platform/internal/money"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Store is the row-store surface the order service needs. The mysql
// implementation lives in internal/repository.
type Store interface {
	CreateOrder(ctx context.Context, o *entity.Order) (*entity.Order, error)
	GetOrderByID(ctx context.Context, id string) (*entity.Order, error)
	UpdateOrder(ctx context.Context, o *entity.Order) error
	ListOrdersByRestaurant(ctx context.Context, restaurantID string) ([]*entity.Order, error)
}

// Service validates order mutations, persists them and publishes a change
// event for every committed write.
type Service struct {
	store       Store
	kafkaWriter *kafka.Writer
	rdb         *redis.Client
}

// NewService creates a new instance of Service. kafkaWriter and rdb may be
// nil in tests; publishing and idempotency checks are then skipped.
func NewService(store Store, kafkaWriter *kafka.Writer, rdb *redis.Client) *Service {
	return &Service{store: store, kafkaWriter: kafkaWriter, rdb: rdb}
}

// CreateOrder computes totals, validates and persists a new order.
func (s *Service) CreateOrder(ctx context.Context, o *entity.Order, idempotentKey string) (*entity.Order, error) {
	ok, err := s.claimIdempotentKey(ctx, idempotentKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrDuplicateKey
	}

	lines := make([]money.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, money.Line{Price: it.Price, Quantity: it.Quantity})
	}
	totals := money.ComputeTotals(lines, money.DefaultTaxRate, o.DiscountAmount)
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total

	if err := ValidateForCreation(o); err != nil {
		return nil, err
	}

	now := time.Now()
	o.ID = uuid.NewString()
	o.OrderNumber = entity.NewOrderNumber(now)
	o.OrderStatus = entity.OrderStatusPendingPayment
	o.PaymentStatus = entity.PaymentStatusPending
	o.Version = 1
	o.CreatedAt = now
	o.UpdatedAt = now

	created, err := s.store.CreateOrder(ctx, o)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating order")
		return nil, err
	}

	if err := s.publishChange(ctx, entity.EventInsert, created); err != nil {
		logger.Error().Err(err).Msgf("Error publishing create event for order %s", created.OrderNumber)
	}

	return created, nil
}

// GetOrder returns a single order with its items.
func (s *Service) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.store.GetOrderByID(ctx, id)
}

// TransitionOrder moves an order along the kitchen path.
func (s *Service) TransitionOrder(ctx context.Context, id string, to entity.OrderStatus) (*entity.Order, error) {
	return s.mutate(ctx, id, func(o *entity.Order) error {
		return Transition(o, to)
	})
}

// CancelOrder soft-cancels an order with a mandatory reason.
func (s *Service) CancelOrder(ctx context.Context, id, reason string) (*entity.Order, error) {
	return s.mutate(ctx, id, func(o *entity.Order) error {
		return Cancel(o, reason)
	})
}

// ApplyOrderDiscount applies a discount and recomputes the total.
func (s *Service) ApplyOrderDiscount(ctx context.Context, id string, d Discount) (*entity.Order, error) {
	return s.mutate(ctx, id, func(o *entity.Order) error {
		return ApplyDiscount(o, d)
	})
}

// MarkOrderPaid is invoked by the payment verifier after a signature
// match. Safe to call twice for the same order.
func (s *Service) MarkOrderPaid(ctx context.Context, id string) (*entity.Order, error) {
	return s.mutate(ctx, id, MarkPaid)
}

// RefundOrder records a refund against a paid order.
func (s *Service) RefundOrder(ctx context.Context, id string, amount decimal.Decimal) (*entity.Order, error) {
	return s.mutate(ctx, id, func(o *entity.Order) error {
		return RecordRefund(o, amount)
	})
}

// mutate loads, transforms and saves an order, publishing the change.
// The version check in UpdateOrder turns concurrent staff edits into
// ErrVersionConflict instead of silent last-write-wins.
func (s *Service) mutate(ctx context.Context, id string, fn func(*entity.Order) error) (*entity.Order, error) {
	o, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting order by ID %s", id)
		return nil, err
	}

	if err := fn(o); err != nil {
		return nil, err
	}

	o.UpdatedAt = time.Now()
	if err := s.store.UpdateOrder(ctx, o); err != nil {
		logger.Error().Err(err).Msgf("Error updating order %s", o.OrderNumber)
		return nil, err
	}

	if err := s.publishChange(ctx, entity.EventUpdate, o); err != nil {
		logger.Error().Err(err).Msgf("Error publishing update event for order %s", o.OrderNumber)
	}

	return o, nil
}

func (s *Service) publishChange(ctx context.Context, eventType string, o *entity.Order) error {
	if s.kafkaWriter == nil {
		return nil
	}

	row, err := json.Marshal(o)
	if err != nil {
		return err
	}
	ev := entity.ChangeEvent{
		Type:            eventType,
		Table:           "orders",
		Row:             row,
		CommitTimestamp: o.UpdatedAt,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", eventType, o.ID)),
		Value: payload,
	}
	return s.kafkaWriter.WriteMessages(ctx, msg)
}

func (s *Service) claimIdempotentKey(ctx context.Context, key string) (bool, error) {
	if s.rdb == nil || key == "" {
		return true, nil
	}
	redisKey := fmt.Sprintf("idempotent-key:%s", key)
	ok, err := s.rdb.SetNX(ctx, redisKey, "exists", 24*time.Hour).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}
