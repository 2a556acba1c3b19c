package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"restaurant-platform/internal/config"
	"restaurant-platform/internal/entity"
	"restaurant-platform/internal/realtime"
	"restaurant-platform/internal/repository"
)

// The kitchen display sync process keeps an in-memory view of a
// restaurant's open orders consistent with the change feed, re-fetching
// from the database whenever the feed reconnects.

type orderView struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func (v *orderView) apply(ev *entity.ChangeEvent) {
	var o entity.Order
	if err := json.Unmarshal(ev.Row, &o); err != nil {
		log.Warn().Err(err).Msg("Dropping undecodable order row")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders[o.ID] = &o
	log.Info().Msgf("Order %s is now %s", o.OrderNumber, o.OrderStatus)
}

func (v *orderView) replace(orders []*entity.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = make(map[string]*entity.Order, len(orders))
	for _, o := range orders {
		v.orders[o.ID] = o
	}
}

func main() {
	cfg := config.Load()

	restaurantID := os.Getenv("RESTAURANT_ID")
	if restaurantID == "" {
		log.Fatal().Msg("RESTAURANT_ID is required")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.Database.User, cfg.Database.Pass, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	orderRepo := repository.NewOrderRepository(db)
	view := &orderView{orders: make(map[string]*entity.Order)}

	connect := func(ctx context.Context) (realtime.Feed, error) {
		return realtime.NewKafkaFeed(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID+"-kds"), nil
	}
	refetch := func(ctx context.Context) error {
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		orders, err := orderRepo.ListOrdersByRestaurant(fetchCtx, restaurantID)
		if err != nil {
			return err
		}
		view.replace(orders)
		log.Info().Msgf("Re-fetched %d orders for restaurant %s", len(orders), restaurantID)
		return nil
	}

	sub := realtime.NewSubscriber(connect, "orders", view.apply, refetch)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Subscriber stopped")
	}
}
