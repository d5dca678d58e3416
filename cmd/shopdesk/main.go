// Package main is the entry point for the shopdesk API server.
// It loads configuration, connects to services, sets up routing, and
// starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shopdesk/internal/config"
	"shopdesk/internal/database"
	"shopdesk/internal/handlers"
	"shopdesk/internal/router"
	"shopdesk/internal/storage"
	"shopdesk/internal/store"
	"shopdesk/internal/token"
)

func main() {
	// Optional .env file for local development; real environments set
	// variables directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"id_alloc", cfg.IDAlloc,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for token revocation. Optional: logout simply
	// lets tokens age out when it is absent.
	var revoked *token.RevocationList
	if addr := cfg.ValkeyAddr(); addr != "" {
		client, err := token.ConnectValkey(addr, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		revoked = token.NewRevocationList(client)
	} else {
		slog.Warn("valkey not configured, logout revocation disabled")
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL, revoked)

	// Connect to S3-compatible object storage. Optional: image uploads
	// return 503 without it.
	var storageClient *storage.Client
	if cfg.HasStorage() {
		storageClient, err = storage.New(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3Bucket, cfg.S3PublicURL,
		)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected",
			"endpoint", cfg.S3Endpoint,
			"bucket", cfg.S3Bucket,
		)
	} else {
		slog.Warn("s3 storage not configured, image uploads disabled")
	}

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db, cfg.IDAlloc)
	productStore := store.NewProductStore(db, cfg.IDAlloc)

	// Create handler groups with their dependencies.
	authHandlers := handlers.NewAuth(userStore, tokens)
	categoryHandlers := handlers.NewCategories(categoryStore)
	productHandlers := handlers.NewProducts(productStore)
	uploadHandlers := handlers.NewUpload(storageClient)

	// Set up the Chi router with all middleware and routes.
	r := router.New(tokens, authHandlers, categoryHandlers, productHandlers, uploadHandlers)

	// Create the HTTP server with sensible timeouts. ReadTimeout must
	// accommodate 5 MB image uploads on slow links.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
