package entity

import "time"

// Subscription tracks a tenant's payment standing and gates access.
type Subscription struct {
	ID               string             `json:"id"`
	RestaurantID     string             `json:"restaurant_id"`
	Status           SubscriptionStatus `json:"status"`
	TrialEndsAt      time.Time          `json:"trial_ends_at"`
	CurrentPeriodEnd time.Time          `json:"current_period_end"`
	LastPaymentID    string             `json:"last_payment_id,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
