package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jengeka/bingwa-sokoni/api/routes"
	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/handlers"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	mongorepo "github.com/Jengeka/bingwa-sokoni/internal/repositories/mongodb"
	"github.com/Jengeka/bingwa-sokoni/internal/services"
	"github.com/Jengeka/bingwa-sokoni/pkg/daraja"
	"github.com/Jengeka/bingwa-sokoni/pkg/mongodb"
	"github.com/Jengeka/bingwa-sokoni/pkg/notifier"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real deployments use environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogger(cfg.LogLevel)

	// Connect to MongoDB
	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)

	// Initialize repositories
	accountRepoImpl := mongorepo.NewAccountRepository(db)
	purchaseRepoImpl := mongorepo.NewPurchaseRepository(db)

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer indexCancel()
	if err := accountRepoImpl.EnsureIndexes(indexCtx); err != nil {
		log.Fatalf("Failed to create account indexes: %v", err)
	}
	if err := purchaseRepoImpl.EnsureIndexes(indexCtx); err != nil {
		log.Fatalf("Failed to create purchase indexes: %v", err)
	}

	var accountRepo repositories.AccountRepository = accountRepoImpl
	var purchaseRepo repositories.PurchaseRepository = purchaseRepoImpl

	// External collaborators
	gateway := daraja.NewClient(cfg)
	whatsapp := notifier.NewWhatsAppGateway(cfg)

	// Initialize services
	catalog := services.NewCatalog(cfg)
	validator := services.NewPurchaseValidator(cfg, catalog)
	purchaseService := services.NewPurchaseService(accountRepo, purchaseRepo, gateway, validator, cfg)
	callbackService := services.NewCallbackService(accountRepo, purchaseRepo, whatsapp, cfg)
	redemptionService := services.NewRedemptionService(accountRepo, cfg)
	accountService := services.NewAccountService(accountRepo, whatsapp, cfg)
	sweepService := services.NewSweepService(accountRepo, purchaseRepo, cfg)

	// Initialize handlers
	deps := routes.HandlerDependencies{
		AccountHandler:    handlers.NewAccountHandler(accountService),
		PurchaseHandler:   handlers.NewPurchaseHandler(purchaseService),
		CallbackHandler:   handlers.NewCallbackHandler(callbackService),
		RedemptionHandler: handlers.NewRedemptionHandler(redemptionService),
	}

	router := routes.SetupRouter(cfg, deps)

	// Start the stale purchase sweep
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweepService.Start(sweepCtx)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	slog.Info("Server starting", "port", cfg.Server.Port)

	// Run server in a goroutine so that it doesn't block
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	slog.Info("Server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
