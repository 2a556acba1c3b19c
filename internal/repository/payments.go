package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

// PaymentRepository persists gateway payment rows.
type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, p *entity.Payment) (*entity.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query := `INSERT INTO payments
		(id, order_id, restaurant_id, gateway_order_id, gateway_payment_id, amount, refund_amount, payment_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OrderID, p.RestaurantID, p.GatewayOrderID, p.GatewayPaymentID, p.Amount, p.RefundAmount, p.Verified, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*entity.Payment, error) {
	query := `SELECT id, order_id, restaurant_id, gateway_order_id, gateway_payment_id, amount, refund_amount, payment_verified, verified_at, created_at
		FROM payments WHERE gateway_payment_id = ?`
	p := &entity.Payment{}
	var verifiedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, gatewayPaymentID).Scan(
		&p.ID, &p.OrderID, &p.RestaurantID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Amount, &p.RefundAmount, &p.Verified, &verifiedAt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	return p, nil
}

func (r *PaymentRepository) MarkPaymentVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	query := `UPDATE payments SET payment_verified = TRUE, verified_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, verifiedAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrPaymentNotFound
	}
	return nil
}

// CredentialRepository resolves per-tenant gateway secrets.
type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetActiveCredential(ctx context.Context, restaurantID string) (*entity.GatewayCredential, error) {
	query := `SELECT id, restaurant_id, key_id, key_secret, active, created_at
		FROM gateway_credentials WHERE restaurant_id = ? AND active = TRUE
		ORDER BY created_at DESC LIMIT 1`
	c := &entity.GatewayCredential{}
	err := r.db.QueryRowContext(ctx, query, restaurantID).Scan(
		&c.ID, &c.RestaurantID, &c.KeyID, &c.KeySecret, &c.Active, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
