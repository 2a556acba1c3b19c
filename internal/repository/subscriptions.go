package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

// SubscriptionRepository persists tenant subscription rows.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, id string) (*entity.Subscription, error) {
	query := `SELECT id, restaurant_id, status, trial_ends_at, current_period_end, last_payment_id, updated_at
		FROM subscriptions WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SubscriptionRepository) UpdateSubscription(ctx context.Context, sub *entity.Subscription) error {
	query := `UPDATE subscriptions SET status = ?, trial_ends_at = ?, current_period_end = ?, last_payment_id = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(sub.Status), sub.TrialEndsAt, sub.CurrentPeriodEnd, sub.LastPaymentID, sub.UpdatedAt, sub.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrSubscriptionNotFound
	}
	return nil
}

// ListExpired returns non-terminal subscriptions whose deadline has
// passed; the billing service decides the resulting transition.
func (r *SubscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	query := `SELECT id, restaurant_id, status, trial_ends_at, current_period_end, last_payment_id, updated_at
		FROM subscriptions
		WHERE status IN ('trial', 'active', 'grace')
		  AND (trial_ends_at < ? OR current_period_end < ?)`
	rows, err := r.db.QueryContext(ctx, query, now, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*entity.Subscription
	for rows.Next() {
		sub, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SubscriptionRepository) scanOne(row *sql.Row) (*entity.Subscription, error) {
	sub, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrSubscriptionNotFound
	}
	return sub, err
}

func (r *SubscriptionRepository) scan(row rowScanner) (*entity.Subscription, error) {
	sub := &entity.Subscription{}
	var rawStatus string
	var lastPaymentID sql.NullString
	err := row.Scan(&sub.ID, &sub.RestaurantID, &rawStatus, &sub.TrialEndsAt, &sub.CurrentPeriodEnd, &lastPaymentID, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sub.Status, err = entity.ParseSubscriptionStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("subscription %s: %w", sub.ID, err)
	}
	sub.LastPaymentID = lastPaymentID.String
	return sub, nil
}
