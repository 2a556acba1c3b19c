package repository

import (
	"context"
	"database/sql"

	"restaurant-platform/internal/entity"
)

// AuditRepository appends to the audit_log table. The table is
// append-only and tolerates concurrent writers.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertAuditEntry(ctx context.Context, e *entity.AuditEntry) error {
	query := `INSERT INTO audit_log (action, order_id, payment_id, restaurant_id, request_ip, user_agent, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.Action, e.OrderID, e.PaymentID, e.RestaurantID, e.RequestIP, e.UserAgent, e.Detail, e.CreatedAt)
	return err
}

// ListRecentAuditEntries returns the newest audit entries for superadmin
// review.
func (r *AuditRepository) ListRecentAuditEntries(ctx context.Context, limit int) ([]*entity.AuditEntry, error) {
	query := `SELECT id, action, order_id, payment_id, restaurant_id, request_ip, user_agent, detail, created_at
		FROM audit_log ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		e := &entity.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.Action, &e.OrderID, &e.PaymentID, &e.RestaurantID, &e.RequestIP, &e.UserAgent, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
