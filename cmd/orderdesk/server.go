package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labelforge/orderdesk/internal/logger"
	"github.com/labelforge/orderdesk/internal/notification"
	"github.com/labelforge/orderdesk/internal/operator"
	"github.com/labelforge/orderdesk/internal/order"
	"github.com/labelforge/orderdesk/internal/pricing"
	"github.com/labelforge/orderdesk/internal/ratelimit"
	"github.com/labelforge/orderdesk/internal/router"
	"github.com/labelforge/orderdesk/internal/shipment"
	storage "github.com/labelforge/orderdesk/internal/storage/postgres"
	"github.com/labelforge/orderdesk/internal/token"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgresStorage(cfg.DatabaseConnection)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres storage: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	var counters ratelimit.CounterStore
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		counters = ratelimit.NewRedisStore(rdb)
	} else {
		mem := ratelimit.NewMemoryStore()
		go mem.StartSweeper(ctx, cfg.SweepInterval)
		counters = mem
	}
	limiter := ratelimit.NewLimiter(counters)

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	mailer := &notification.HTTPMailClient{
		Client:      httpClient,
		MailAddress: cfg.MailAddress,
		SigningKey:  cfg.MailSigningKey,
	}
	docs := &token.HTTPDocumentClient{
		Client:          httpClient,
		DocumentAddress: cfg.DocumentAddress,
	}

	dispatcher := notification.NewDispatcher(mailer, store, store, cfg.NotificationQueue)
	go dispatcher.Run(ctx, cfg.NotificationWorkers)

	notificationSvc := notification.NewService(store, store, dispatcher)
	notificationHandler := notification.NewHandler(notificationSvc)

	pricingSvc := pricing.NewService(store, store)
	pricingHandler := pricing.NewHandler(pricingSvc)

	tokenSvc := token.NewService(store, store, cfg.SessionTTL, cfg.InvoiceTokenTTL)
	tokenHandler := token.NewHandler(tokenSvc, docs)

	shipmentSvc := shipment.NewService(store, store, store)
	shipmentHandler := shipment.NewHandler(shipmentSvc)

	orderSvc := order.NewService(store, pricingSvc, store, notificationSvc)
	orderHandler := order.NewHandler(orderSvc)

	operatorSvc := operator.NewService([]byte(cfg.OperatorPasswordHash), []byte(cfg.JWTSecret), cfg.JWTTTL)
	operatorHandler := operator.NewHandler(operatorSvc)

	r := router.NewRouter(
		orderHandler,
		pricingHandler,
		tokenHandler,
		shipmentHandler,
		notificationHandler,
		operatorHandler,
		limiter,
		[]byte(cfg.JWTSecret),
	)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
