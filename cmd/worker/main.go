package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dimasprawira/go-marketplace-orders/internal/config"
	kafkax "github.com/dimasprawira/go-marketplace-orders/internal/kafka"
	"github.com/dimasprawira/go-marketplace-orders/internal/orders"
	"github.com/dimasprawira/go-marketplace-orders/internal/redisx"
	"github.com/dimasprawira/go-marketplace-orders/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &worker.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "order-projector")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), "4")

	consume := func(topic string, h kafkax.Handler) {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func() {
			log.Printf("consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, h); err != nil {
				log.Printf("consumer exit topic=%s: %v", topic, err)
				cancel()
			}
		}()
	}

	consume(orders.TopicOrderPlaced, svc.HandleOrderEvent)
	consume(orders.TopicOrderStatusChanged, svc.HandleOrderEvent)
	consume(orders.TopicOrderDeleted, svc.HandleOrderEvent)
	consume(orders.TopicInventoryAlerts, svc.HandleInventoryAlert)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
