// Package main is the entry point for the Melo WMS API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"melowms/internal/core/security"
	"melowms/internal/core/store"
	"melowms/internal/domain/audit"
	"melowms/internal/domain/auth"
	"melowms/internal/domain/catalogs"
	"melowms/internal/domain/expenses"
	"melowms/internal/domain/fillables"
	"melowms/internal/domain/inventory"
	"melowms/internal/domain/purchases"
	"melowms/internal/domain/sales"
	"melowms/internal/domain/stats"
	"melowms/internal/domain/transfers"
	v1 "melowms/internal/infrastructure/http/v1"
	"melowms/internal/infrastructure/http/v1/handlers"
	"melowms/internal/infrastructure/storage/docstore"
	"melowms/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting melowms server")

	// --- Document store ---
	// Without DATABASE_URL the server runs on the in-memory store. That
	// mode is for local development only: every restart loses all data.
	var (
		docs   store.Store
		pinger handlers.Pinger
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		poolCfg := docstore.DefaultPoolConfig(dsn)
		pool, err := docstore.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		if err := docstore.Migrate(ctx, pool); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
		docs = docstore.New(pool)
		pinger = pool
		log.Info("database connection established")
	} else {
		docs = store.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	// --- Services ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(docs, jwtService)

	statsService := stats.NewService(docs)
	inventoryService := inventory.NewService(docs)
	catalogService := catalogs.NewService(docs)
	fillableService := fillables.NewService(docs)
	transferService := transfers.NewService(docs, inventoryService, statsService)
	saleService := sales.NewService(docs, inventoryService, fillableService, statsService)
	purchaseService := purchases.NewService(docs, inventoryService, statsService)
	expenseService := expenses.NewService(docs, statsService)

	auditService, err := audit.NewService(docs)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	policyEngine, err := security.NewEngine(security.DefaultRules())
	if err != nil {
		log.Fatalw("failed to compile security rules", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(log, jwtService, policyEngine, v1.Handlers{
		Health:    handlers.NewHealth(pinger),
		Auth:      handlers.NewAuth(authService),
		Catalogs:  handlers.NewCatalogs(catalogService, fillableService),
		Inventory: handlers.NewInventory(inventoryService),
		Stats:     handlers.NewStats(statsService),
		Transfers: handlers.NewTransfers(transferService, catalogService, auditService),
		Sales:     handlers.NewSales(saleService, auditService),
		Purchases: handlers.NewPurchases(purchaseService, auditService),
		Expenses:  handlers.NewExpenses(expenseService, auditService),
		Audit:     handlers.NewAudit(auditService),
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
