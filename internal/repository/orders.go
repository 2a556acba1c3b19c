package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

// OrderRepository persists orders and their item snapshots in MySQL.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts the order and its items in one transaction. Items
// are batch-inserted.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *entity.Order) (*entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	orderQuery := `INSERT INTO orders
		(id, restaurant_id, table_id, session_id, order_number, order_status, payment_status,
		 subtotal, tax, discount_amount, total, refund_amount, cancellation_reason, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, orderQuery,
		o.ID, o.RestaurantID, o.TableID, o.SessionID, o.OrderNumber, string(o.OrderStatus), string(o.PaymentStatus),
		o.Subtotal, o.Tax, o.DiscountAmount, o.Total, o.RefundAmount, o.CancellationReason, o.Version, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if len(o.Items) > 0 {
		itemQuery := `INSERT INTO order_items
			(order_id, menu_item_id, name, price, quantity, notes, is_veg, item_status)
			VALUES `
		var values []interface{}
		for _, it := range o.Items {
			itemQuery += "(?, ?, ?, ?, ?, ?, ?, ?),"
			values = append(values, o.ID, it.MenuItemID, it.Name, it.Price, it.Quantity, it.Notes, it.IsVeg, string(it.ItemStatus))
		}
		itemQuery = itemQuery[:len(itemQuery)-1]

		_, err = tx.ExecContext(ctx, itemQuery, values...)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return o, nil
}

// GetOrderByID loads an order with its items. Status columns are parsed at
// this boundary; an unknown status never reaches state-machine code.
func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*entity.Order, error) {
	orderQuery := `SELECT id, restaurant_id, table_id, session_id, order_number, order_status, payment_status,
		subtotal, tax, discount_amount, total, refund_amount, cancellation_reason, version, created_at, updated_at
		FROM orders WHERE id = ?`

	o, err := scanOrder(r.db.QueryRowContext(ctx, orderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// scanOrder reads one order row. Status columns are parsed here so an
// unknown status never reaches state-machine code.
func scanOrder(row rowScanner) (*entity.Order, error) {
	o := &entity.Order{}
	var rawOrderStatus, rawPaymentStatus string
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.TableID, &o.SessionID, &o.OrderNumber, &rawOrderStatus, &rawPaymentStatus,
		&o.Subtotal, &o.Tax, &o.DiscountAmount, &o.Total, &o.RefundAmount, &o.CancellationReason, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if o.OrderStatus, err = entity.ParseOrderStatus(rawOrderStatus); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if o.PaymentStatus, err = entity.ParsePaymentStatus(rawPaymentStatus); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	return o, nil
}

// UpdateOrder saves a mutated order. The version predicate rejects writes
// based on a stale read from another staff device.
func (r *OrderRepository) UpdateOrder(ctx context.Context, o *entity.Order) error {
	query := `UPDATE orders SET order_status = ?, payment_status = ?, subtotal = ?, tax = ?,
		discount_amount = ?, total = ?, refund_amount = ?, cancellation_reason = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(o.OrderStatus), string(o.PaymentStatus), o.Subtotal, o.Tax,
		o.DiscountAmount, o.Total, o.RefundAmount, o.CancellationReason,
		o.UpdatedAt, o.ID, o.Version)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrVersionConflict
	}

	o.Version++
	return nil
}

// ListOrdersByRestaurant returns the restaurant's orders, newest first.
// Used by the realtime layer for full re-fetch after a reconnect, so the
// whole listing costs two queries regardless of order count.
func (r *OrderRepository) ListOrdersByRestaurant(ctx context.Context, restaurantID string) ([]*entity.Order, error) {
	query := `SELECT id, restaurant_id, table_id, session_id, order_number, order_status, payment_status,
		subtotal, tax, discount_amount, total, refund_amount, cancellation_reason, version, created_at, updated_at
		FROM orders WHERE restaurant_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemsByOrder, err := r.loadItemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = itemsByOrder[o.ID]
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]entity.OrderItem, error) {
	itemsByOrder, err := r.loadItemsForOrders(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	return itemsByOrder[orderID], nil
}

// loadItemsForOrders fetches the items of many orders in one query.
func (r *OrderRepository) loadItemsForOrders(ctx context.Context, orderIDs []string) (map[string][]entity.OrderItem, error) {
	itemQuery := `SELECT order_id, menu_item_id, name, price, quantity, notes, is_veg, item_status
		FROM order_items WHERE order_id IN (`
	args := make([]interface{}, 0, len(orderIDs))
	for _, id := range orderIDs {
		itemQuery += "?,"
		args = append(args, id)
	}
	itemQuery = itemQuery[:len(itemQuery)-1] + ")"

	rows, err := r.db.QueryContext(ctx, itemQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByOrder := make(map[string][]entity.OrderItem, len(orderIDs))
	for rows.Next() {
		it := entity.OrderItem{}
		var orderID, rawStatus string
		if err := rows.Scan(&orderID, &it.MenuItemID, &it.Name, &it.Price, &it.Quantity, &it.Notes, &it.IsVeg, &rawStatus); err != nil {
			return nil, err
		}
		it.ItemStatus = entity.ItemStatus(rawStatus)
		itemsByOrder[orderID] = append(itemsByOrder[orderID], it)
	}
	return itemsByOrder, rows.Err()
}
