package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dimasprawira/go-marketplace-orders/internal/config"
	"github.com/dimasprawira/go-marketplace-orders/internal/httpx"
	"github.com/dimasprawira/go-marketplace-orders/internal/inventory"
	kafkax "github.com/dimasprawira/go-marketplace-orders/internal/kafka"
	"github.com/dimasprawira/go-marketplace-orders/internal/orders"
	"github.com/dimasprawira/go-marketplace-orders/internal/postgres"
	"github.com/dimasprawira/go-marketplace-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pDeleted := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderDeleted, 1024)
	pAlerts := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicInventoryAlerts, 256)
	producers := []*kafkax.Producer{pPlaced, pStatus, pDeleted, pAlerts}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Ledger, repos, coordinator
	ledger := &inventory.PostgresLedger{DB: db}
	repo := &orders.Repo{DB: db}
	coord := &orders.Coordinator{
		Ledger:     ledger,
		Store:      repo,
		PubPlaced:  pPlaced,
		PubStatus:  pStatus,
		PubDeleted: pDeleted,
		PubAlerts:  pAlerts,
		Service:    cfg.ServiceName,
	}

	// Handlers
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Coordinator: coord, Store: repo, Redis: rdb}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Products: &orders.ProductRepo{DB: db}, Ledger: ledger}
	ph.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // close inbox -> flush & close writer
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
