package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/category"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/handler"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/notification"
	"storefront-be/internal/order"
	"storefront-be/internal/product"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout   = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
	redisQueuePrefix = "storefront:notify"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

type server struct {
	handler    http.Handler
	dispatcher *notification.Dispatcher
	limiter    *middleware.RateLimiter
	queue      notification.Queue
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	srv, err := newServer(cfg, database)
	if err != nil {
		return err
	}
	defer srv.queue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	workers, stopWorkers := context.WithCancel(gctx)
	defer stopWorkers()

	g.Go(func() error {
		defer stopWorkers()
		return startServerFunc(gctx, ":"+cfg.AppPort, srv.handler)
	})
	g.Go(func() error {
		return srv.dispatcher.Run(workers)
	})
	g.Go(func() error {
		srv.limiter.Cleanup(workers)
		return nil
	})

	return g.Wait()
}

func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	reg := metrics.NewRegistry()

	queue, err := newQueue(cfg)
	if err != nil {
		return nil, err
	}

	renderer, err := notification.NewRenderer()
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("load email templates: %w", err)
	}

	var sender notification.Sender = notification.LogSender{}
	if cfg.EmailAPIKey != "" {
		sender = notification.NewHTTPSender(cfg.EmailAPIURL, cfg.EmailAPIKey)
	}

	dispatcher := notification.NewDispatcher(queue, sender, renderer, reg, notification.DispatcherConfig{
		From:        cfg.EmailFrom,
		AdminEmail:  cfg.AdminEmail,
		Delay:       cfg.NotifyDelay,
		MaxAttempts: cfg.NotifyMaxAttempts,
	})

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)

	categorySvc := category.NewService(category.NewRepository(database))

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo, productRepo)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, productRepo, dispatcher, reg, cfg.StoreTimeout)

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)

	h := handler.New(handler.Services{
		Products:   productSvc,
		Categories: categorySvc,
		Carts:      cartSvc,
		Orders:     orderSvc,
	}, reg, database)

	return &server{
		handler: handler.NewRouter(h, handler.RouterOptions{
			JWTSecret:      cfg.JWTSecret,
			CORSOrigin:     cfg.CORSOrigin,
			Limiter:        limiter,
			RequestTimeout: requestTimeout,
		}),
		dispatcher: dispatcher,
		limiter:    limiter,
		queue:      queue,
	}, nil
}

func newQueue(cfg *config.Config) (notification.Queue, error) {
	if cfg.NotifyQueue == "redis" {
		q, err := notification.NewRedisQueue(cfg.RedisURL, redisQueuePrefix)
		if err != nil {
			return nil, fmt.Errorf("connect notification queue: %w", err)
		}
		return q, nil
	}
	return notification.NewMemoryQueue(), nil
}

// startServer serves until ctx is done, then drains in-flight requests.
func startServer(ctx context.Context, addr string, h http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
