package migrations

import (
	"database/sql"
	"time"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id CHAR(36) PRIMARY KEY,
		restaurant_id CHAR(36) NOT NULL,
		table_id VARCHAR(64) NOT NULL DEFAULT '',
		session_id VARCHAR(64) NOT NULL DEFAULT '',
		order_number VARCHAR(20) NOT NULL,
		order_status VARCHAR(20) NOT NULL,
		payment_status VARCHAR(20) NOT NULL,
		subtotal DECIMAL(10,2) NOT NULL,
		tax DECIMAL(10,2) NOT NULL,
		discount_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		total DECIMAL(10,2) NOT NULL,
		refund_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		cancellation_reason TEXT,
		version INT NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_orders_restaurant (restaurant_id)
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		menu_item_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		quantity INT NOT NULL,
		notes TEXT,
		is_veg BOOLEAN NOT NULL DEFAULT FALSE,
		item_status VARCHAR(20) NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		restaurant_id CHAR(36) NOT NULL,
		gateway_order_id VARCHAR(64) NOT NULL,
		gateway_payment_id VARCHAR(64) NOT NULL UNIQUE,
		amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		refund_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		payment_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verified_at DATETIME NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS gateway_credentials (
		id CHAR(36) PRIMARY KEY,
		restaurant_id CHAR(36) NOT NULL,
		key_id VARCHAR(64) NOT NULL,
		key_secret VARCHAR(128) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		INDEX idx_credentials_restaurant (restaurant_id)
	);`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id CHAR(36) PRIMARY KEY,
		restaurant_id CHAR(36) NOT NULL UNIQUE,
		status VARCHAR(20) NOT NULL,
		trial_ends_at DATETIME NOT NULL,
		current_period_end DATETIME NOT NULL,
		last_payment_id VARCHAR(64),
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		action VARCHAR(64) NOT NULL,
		order_id VARCHAR(64),
		payment_id VARCHAR(64),
		restaurant_id CHAR(36),
		request_ip VARCHAR(64),
		user_agent VARCHAR(255),
		detail TEXT,
		created_at DATETIME NOT NULL
	);`,
}

// AutoMigrate creates all platform tables if they do not exist.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, query := range tables {
		_, err := db.Exec(query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				time.Sleep(1 * time.Second)
				_, err = db.Exec(query)
				if err == nil {
					break
				}
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
