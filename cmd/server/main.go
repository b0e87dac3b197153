package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solwatch/service/config"
	"github.com/brojonat/solwatch/service/metrics"
	natspkg "github.com/brojonat/solwatch/service/nats"
	"github.com/brojonat/solwatch/service/server"
	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/brojonat/solwatch/service/stream"
	"github.com/brojonat/solwatch/service/token"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"wallets", len(cfg.Wallets),
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics, registered on the default registry so the server's
	// /metrics endpoint picks them up.
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Parse tracked wallet addresses up front
	wallets := make([]solanago.PublicKey, 0, len(cfg.Wallets))
	for _, addr := range cfg.Wallets {
		pk, err := solanago.PublicKeyFromBase58(addr)
		if err != nil {
			logger.Error("invalid wallet address", "address", addr, "error", err)
			os.Exit(1)
		}
		wallets = append(wallets, pk)
	}

	// Initialize Solana RPC client
	rpcClient := rpc.New(cfg.RPCEndpoint())
	solanaClient := solsvc.NewClient(rpcClient, cfg.SolanaRPCURL, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	// Initialize token metadata resolver and transaction parser
	resolver := token.NewResolver(rpcClient, cfg.TokenListURL, &http.Client{Timeout: 15 * time.Second}, m, logger)
	parser := solsvc.NewParser(resolver, logger)

	// Initialize NATS publisher for downstream consumers (SSE replay)
	publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
	if err != nil {
		logger.Error("failed to initialize NATS publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Initialize SSE publisher (serves the streaming endpoints)
	ssePublisher, err := server.NewSSEPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to initialize SSE publisher", "error", err)
		os.Exit(1)
	}

	// Display window holds the most recent transactions, newest first
	window := stream.NewWindow(cfg.MaxTransactions)

	// Initialize the subscription manager
	manager := stream.NewManager(stream.ManagerConfig{
		Wallets:        wallets,
		Dial:           stream.WebSocketDialer(cfg.WSEndpoint()),
		Fetcher:        solanaClient,
		Parser:         parser,
		Stagger:        cfg.ConnectStagger,
		MaxReconnects:  cfg.MaxReconnectAttempts,
		ReconnectDelay: cfg.ReconnectDelay,
	}, m, logger)

	manager.OnTransaction(func(txn *solsvc.Transaction) {
		window.Insert(txn)
		if err := publisher.PublishTransaction(ctx, txn); err != nil {
			logger.Warn("failed to publish transaction",
				"signature", txn.ID,
				"error", err,
			)
		}
	})
	manager.OnStatus(func(state stream.State, connected int) {
		logger.Info("connection status changed",
			"status", string(state),
			"connected_wallets", connected,
		)
	})

	// Start streaming
	manager.Connect(ctx)

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, window, manager, ssePublisher, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Stop subscriptions first so no further events are emitted
		manager.Disconnect()

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
