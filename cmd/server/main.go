package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"

	"restaurant-platform/internal/api"
	"restaurant-platform/internal/billing"
	"restaurant-platform/internal/config"
	"restaurant-platform/internal/order"
	"restaurant-platform/internal/payment"
	"restaurant-platform/internal/repository"
	"restaurant-platform/migrations"
)

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("Connected to DB %s", cfg.Name)
				return db, nil
			}
		}
		log.Printf("Retry %d: Failed to connect to DB %s (%s:%s): %v", i+1, cfg.Name, cfg.Host, cfg.Port, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", cfg.Name, cfg.Host, cfg.Port, err)
}

func main() {
	cfg := config.Load()

	db, err := connectDB(cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}

	if err := migrations.AutoMigrate(3, db); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	kafkaWriter := config.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	orderService := order.NewService(orderRepo, kafkaWriter, rdb)
	billingService := billing.NewService(subscriptionRepo, rdb, kafkaWriter, cfg.Billing.PeriodDays, cfg.Billing.GraceDays)
	verifier := payment.NewVerifier(credentialRepo, paymentRepo, auditRepo,
		orderService, billingService, rdb, cfg.Payment.DefaultSecret, cfg.Payment.GatewayURL)

	orderHandler := api.NewOrderHandler(orderService)
	paymentHandler := api.NewPaymentHandler(verifier)
	billingHandler := api.NewBillingHandler(billingService, subscriptionRepo, auditRepo, cfg.Billing.GraceDays)

	e := api.NewServer(orderHandler, paymentHandler, billingHandler, cfg.JWT.Secret)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Logger.Fatal(e.Start(":" + cfg.Server.Port))
}
