package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"merchantry/internal/config"
	"merchantry/internal/db"
	"merchantry/internal/events"
	"merchantry/internal/feed"
	"merchantry/internal/httpserver"
	cartrepo "merchantry/internal/repository/cart"
	productrepo "merchantry/internal/repository/product"
	"merchantry/internal/repository/purchase"
	ticketrepo "merchantry/internal/repository/ticket"
	tokenrepo "merchantry/internal/repository/token"
	userrepo "merchantry/internal/repository/user"
	cartsvc "merchantry/internal/service/cart"
	checkoutsvc "merchantry/internal/service/checkout"
	productsvc "merchantry/internal/service/product"
	usersvc "merchantry/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var broker *feed.RedisBroker
	var notifier feed.Notifier = feed.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		broker = feed.NewRedisBroker(rdb, cfg.FeedChannel, logger)
		notifier = broker
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.EventTopic, cfg.ServiceName, logger)
	defer producer.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger, notifier)
	productService := productsvc.New(productRepo)
	cartRepo := cartrepo.NewPostgres(dbpool)
	cartService := cartsvc.New(cartRepo, productRepo)
	ticketRepo := ticketrepo.NewPostgres(dbpool)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	userRepo := userrepo.NewPostgres(dbpool, logger)
	userService := usersvc.New(userRepo, tokenRepo, cartRepo)
	checkoutService := checkoutsvc.New(purchase.NewUnitOfWork(dbpool, notifier, logger), logger)

	deps := httpserver.Deps{
		ProductSvc:  productService,
		CartSvc:     cartService,
		CheckoutSvc: checkoutService,
		UserSvc:     userService,
		Tickets:     ticketRepo,
	}
	if broker != nil {
		deps.Feed = broker
	}
	deps.Events = producer

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, deps)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
