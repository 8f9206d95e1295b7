package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"book-checkout/internal/cache"
	"book-checkout/internal/config"
	"book-checkout/internal/database"
	"book-checkout/internal/gateway"
	"book-checkout/internal/handler"
	"book-checkout/internal/repository"
	"book-checkout/internal/router"
	"book-checkout/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is a local development convenience; in deployment the
	// environment is already populated.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting book-checkout API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize the Redis-backed reservation cache
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()

	redisCache := cache.NewRedis(redisClient, logger)
	resStore := cache.NewReservationStore(redisCache, cfg.Checkout.ReservationTTL(), logger)
	qrStore := cache.NewQRSessionStore(redisCache, cfg.Checkout.QRTTL(), logger)

	// Initialize repositories
	bookRepo := repository.NewBookRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	discountRepo := repository.NewDiscountRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	payeeRepo := repository.NewPayeeRepository(pool, logger)

	// Initialize the payment gateway client
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIToken, cfg.Gateway.Timeout(), logger)

	// Initialize services
	payeeResolver := service.NewPayeeResolver(bookRepo, payeeRepo, gw, cfg.Payee, logger)
	checkoutService := service.NewCheckoutService(resStore, qrStore, bookRepo, cartRepo, discountRepo, logger)
	qrService := service.NewQRService(resStore, qrStore, payeeResolver, gw, cfg.Checkout.QRTTL(), logger)
	materializer := service.NewOrderMaterializer(resStore, qrStore, orderRepo, bookRepo, cartRepo, discountRepo, logger)
	settlementService := service.NewSettlementService(resStore, qrStore, orderRepo, gw, materializer, cfg.Checkout.MaxPollAttempts, logger)

	// Initialize HTTP handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, qrService, settlementService, cfg.Checkout.Currency, logger)

	// Initialize router
	mux := router.New(checkoutHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
