// Riskd - Risk scoring service for fraud and loan-default models.
// Copyright (c) 2025 project-edi
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/project-edi/riskd/internal/api"
	"github.com/project-edi/riskd/internal/domain"
	"github.com/project-edi/riskd/internal/model"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration first; the log level depends on it
	cfg := domain.LoadConfig()
	initLogger(cfg.Logging)

	slog.Info("starting riskd",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"fraud_model", cfg.Models.FraudArtifactPath,
		"loan_model", cfg.Models.LoanArtifactPath,
		"workbook", cfg.Data.WorkbookPath,
		"bulk_policy", cfg.Policy.BulkFlag,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load model artifacts. Both models are required; refusing to start
	// beats serving half the endpoints.
	forest, err := model.LoadIsolationForest(cfg.Models.FraudArtifactPath)
	if err != nil {
		slog.Error("failed to load fraud model", "path", cfg.Models.FraudArtifactPath, "error", err)
		os.Exit(1)
	}
	slog.Info("fraud model loaded", "path", cfg.Models.FraudArtifactPath, "trees", forest.TreeCount())

	logistic, err := model.LoadLogisticModel(cfg.Models.LoanArtifactPath)
	if err != nil {
		slog.Error("failed to load loan model", "path", cfg.Models.LoanArtifactPath, "error", err)
		os.Exit(1)
	}
	slog.Info("loan model loaded", "path", cfg.Models.LoanArtifactPath)

	// Initialize Server
	srv := api.NewServer(cfg.Server, forest, logistic, cfg.Policy, cfg.Data, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("riskd is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("riskd shutdown complete")
}

func initLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("RISKD_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               📊 RISKD                    ║")
	fmt.Println("  ║        Risk Scoring Service               ║")
	fmt.Println("  ║   Every transaction gets a number.        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /               - Liveness check")
	fmt.Println("    POST /fraud/score    - Score a single transaction")
	fmt.Println("    GET  /transactions   - Bulk-score the source workbook")
	fmt.Println("    POST /loan/score     - Score a loan application")
	fmt.Println("    GET  /health         - Health check")
	fmt.Println("    GET  /ready          - Readiness check")
	fmt.Println()
}
