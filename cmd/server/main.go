package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultmint/internal/api"
	"vaultmint/internal/blockchain/evm"
	"vaultmint/internal/config"
	"vaultmint/internal/database"
	"vaultmint/internal/metrics"
	"vaultmint/internal/service"
	"vaultmint/internal/worker"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Vault Mint Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("chain", cfg.Chain.Name),
		zap.String("variant", cfg.Chain.Variant),
		zap.Int("num_tokens", len(cfg.Tokens)))

	// Connect to database
	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Run migrations
	migrationPath := "internal/database/migrations/001_schema.sql"
	if err := database.RunMigrations(db, migrationPath); err != nil {
		logger.Warn("Failed to run migrations (may already be applied)", zap.Error(err))
	} else {
		logger.Info("Database migrations applied successfully")
	}

	// Connect to the source chain
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := evm.NewClient(startupCtx, &cfg.Chain, cfg.Wallet.PrivateKey, logger)
	if err != nil {
		startupCancel()
		logger.Fatal("Failed to connect to chain", zap.Error(err))
	}
	defer client.Close()

	checkContracts(startupCtx, client, cfg, logger)
	startupCancel()

	// Initialize services
	registry := metrics.New()

	assetService, err := service.NewAssetService(cfg.Tokens, logger)
	if err != nil {
		logger.Fatal("Failed to load deposit assets", zap.Error(err))
	}
	depositService := service.NewDepositService(db, logger)

	// Initialize workers
	workerManager := worker.NewWorkerManager(cfg, client, client, depositService, registry, logger)
	previewService := service.NewPreviewService(workerManager.Quotes(), assetService, uint16(cfg.Mint.SlippageBps), logger)

	logger.Info("Services initialized")

	// Initialize API handlers
	apiHandler := api.NewHandler(assetService, previewService, depositService, workerManager, logger)
	router := api.SetupRouter(apiHandler, registry.Handler(), logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting requests before cancelling in-flight deposits
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if err := workerManager.Shutdown(10 * time.Second); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}

	logger.Info("Service stopped successfully")
}

// checkContracts warns about configured addresses with no code behind them
// and about a paused teller
func checkContracts(ctx context.Context, client *evm.Client, cfg *config.Config, logger *zap.Logger) {
	contracts := map[string]string{"accountant": cfg.Chain.AccountantAddress}
	if cfg.Chain.Variant == config.VariantTeller {
		contracts["teller"] = cfg.Chain.TellerAddress
		contracts["vault"] = cfg.Chain.VaultAddress
	} else {
		contracts["warp_route"] = cfg.Chain.WarpRouteAddress
	}

	for name, address := range contracts {
		deployed, err := client.IsContractDeployed(ctx, common.HexToAddress(address))
		if err != nil {
			logger.Warn("Failed to check contract deployment",
				zap.String("contract", name),
				zap.Error(err))
			continue
		}
		if !deployed {
			logger.Warn("No code at configured contract address",
				zap.String("contract", name),
				zap.String("address", address))
		}
	}

	if cfg.Chain.Variant != config.VariantTeller {
		return
	}

	call := evm.IsPausedCall(common.HexToAddress(cfg.Chain.TellerAddress))
	outputs, err := client.ReadContract(ctx, call)
	if err != nil {
		logger.Warn("Failed to read teller pause state", zap.Error(err))
		return
	}
	paused, err := evm.FirstBool(call.Method, outputs)
	if err != nil {
		logger.Warn("Unexpected teller pause state", zap.Error(err))
		return
	}
	if paused {
		logger.Warn("Teller is paused; deposits will fail simulation",
			zap.String("teller", cfg.Chain.TellerAddress))
	}
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
