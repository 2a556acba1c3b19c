package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Store is the subscription row surface used by the billing service.
type Store interface {
	GetSubscriptionByID(ctx context.Context, id string) (*entity.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *entity.Subscription) error
	ListExpired(ctx context.Context, now time.Time) ([]*entity.Subscription, error)
}

// Service drives the tenant subscription lifecycle:
// trial -> active -> grace -> suspended, with reactivation to active on
// any verified payment from a non-cancelled state.
type Service struct {
	store        Store
	rdb          *redis.Client
	kafkaWriter  *kafka.Writer
	periodLength time.Duration
	gracePeriod  time.Duration
}

// NewService creates a new instance of Service. rdb and kafkaWriter may be
// nil in tests.
func NewService(store Store, rdb *redis.Client, kafkaWriter *kafka.Writer, periodDays, graceDays int) *Service {
	return &Service{
		store:        store,
		rdb:          rdb,
		kafkaWriter:  kafkaWriter,
		periodLength: time.Duration(periodDays) * 24 * time.Hour,
		gracePeriod:  time.Duration(graceDays) * 24 * time.Hour,
	}
}

// ProcessVerifiedPayment extends the billing period and activates the
// subscription. Called only after the gateway signature has been verified.
// A payment applied to an already-extended period (duplicate callback with
// the same gateway payment id) is a no-op.
func (s *Service) ProcessVerifiedPayment(ctx context.Context, subscriptionID string, amount decimal.Decimal, gatewayPaymentID string) (*entity.Subscription, error) {
	sub, err := s.store.GetSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting subscription %s", subscriptionID)
		return nil, err
	}

	if sub.Status == entity.SubscriptionStatusCancelled {
		return nil, apperr.Transitionf("subscription %s is cancelled", subscriptionID)
	}
	if sub.LastPaymentID == gatewayPaymentID {
		return sub, nil
	}

	now := time.Now()
	wasSuspended := sub.Status == entity.SubscriptionStatusSuspended

	base := sub.CurrentPeriodEnd
	if base.Before(now) {
		base = now
	}
	sub.CurrentPeriodEnd = base.Add(s.periodLength)
	sub.Status = entity.SubscriptionStatusActive
	sub.LastPaymentID = gatewayPaymentID
	sub.UpdatedAt = now

	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		logger.Error().Err(err).Msgf("Error updating subscription %s", subscriptionID)
		return nil, err
	}

	if wasSuspended {
		s.clearTenantLock(ctx, sub.RestaurantID)
	}

	logger.Info().Msgf("Subscription %s extended to %s after payment %s of %s",
		subscriptionID, sub.CurrentPeriodEnd.Format(time.RFC3339), gatewayPaymentID, amount)

	if err := s.publishChange(ctx, sub); err != nil {
		logger.Error().Err(err).Msgf("Error publishing billing event for subscription %s", subscriptionID)
	}

	return sub, nil
}

// EvaluateExpiry applies the time-driven transitions: trial past
// trial_ends_at moves to grace, grace past its window moves to suspended.
// Payment failures never drive these transitions; only elapsed time does.
func (s *Service) EvaluateExpiry(ctx context.Context, now time.Time) error {
	subs, err := s.store.ListExpired(ctx, now)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing expired subscriptions")
		return err
	}

	for _, sub := range subs {
		next, changed := NextExpiryState(sub, now, s.gracePeriod)
		if !changed {
			continue
		}
		sub.Status = next
		sub.UpdatedAt = now
		if err := s.store.UpdateSubscription(ctx, sub); err != nil {
			logger.Error().Err(err).Msgf("Error updating subscription %s", sub.ID)
			continue
		}
		if next == entity.SubscriptionStatusSuspended {
			s.setTenantLock(ctx, sub.RestaurantID)
		}
		if err := s.publishChange(ctx, sub); err != nil {
			logger.Error().Err(err).Msgf("Error publishing billing event for subscription %s", sub.ID)
		}
	}

	return nil
}

// NextExpiryState computes the time-driven transition for a subscription.
// cancelled is terminal and never produced by expiry.
func NextExpiryState(sub *entity.Subscription, now time.Time, gracePeriod time.Duration) (entity.SubscriptionStatus, bool) {
	switch sub.Status {
	case entity.SubscriptionStatusTrial:
		if now.After(sub.TrialEndsAt) {
			return entity.SubscriptionStatusGrace, true
		}
	case entity.SubscriptionStatusActive:
		if now.After(sub.CurrentPeriodEnd) {
			return entity.SubscriptionStatusGrace, true
		}
	case entity.SubscriptionStatusGrace:
		if now.After(graceDeadline(sub, gracePeriod)) {
			return entity.SubscriptionStatusSuspended, true
		}
	}
	return sub.Status, false
}

// DaysRemaining reports how many whole days are left before the next
// time-driven transition. Zero or negative means the deadline has passed.
func DaysRemaining(sub *entity.Subscription, now time.Time, gracePeriod time.Duration) int {
	var deadline time.Time
	switch sub.Status {
	case entity.SubscriptionStatusTrial:
		deadline = sub.TrialEndsAt
	case entity.SubscriptionStatusActive:
		deadline = sub.CurrentPeriodEnd
	case entity.SubscriptionStatusGrace:
		deadline = graceDeadline(sub, gracePeriod)
	default:
		return 0
	}
	return int(deadline.Sub(now).Hours() / 24)
}

func graceDeadline(sub *entity.Subscription, gracePeriod time.Duration) time.Time {
	deadline := sub.CurrentPeriodEnd
	if sub.TrialEndsAt.After(deadline) {
		deadline = sub.TrialEndsAt
	}
	return deadline.Add(gracePeriod)
}

// clearTenantLock removes the soft-lock flag set when a tenant was
// suspended. Reactivation must not leave a stale lock behind.
func (s *Service) clearTenantLock(ctx context.Context, restaurantID string) {
	if s.rdb == nil {
		return
	}
	key := fmt.Sprintf("tenant-lock:%s", restaurantID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error clearing tenant lock for restaurant %s", restaurantID)
	}
}

func (s *Service) setTenantLock(ctx context.Context, restaurantID string) {
	if s.rdb == nil {
		return
	}
	key := fmt.Sprintf("tenant-lock:%s", restaurantID)
	if err := s.rdb.Set(ctx, key, "suspended", 0).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error setting tenant lock for restaurant %s", restaurantID)
	}
}

func (s *Service) publishChange(ctx context.Context, sub *entity.Subscription) error {
	if s.kafkaWriter == nil {
		return nil
	}
	row, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	ev := entity.ChangeEvent{
		Type:            entity.EventUpdate,
		Table:           "subscriptions",
		Row:             row,
		CommitTimestamp: sub.UpdatedAt,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("billing-%s-%s", sub.Status, sub.ID)),
		Value: payload,
	}
	return s.kafkaWriter.WriteMessages(ctx, msg)
}
