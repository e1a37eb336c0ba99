// cebx serves the CEBX fraud, pricing and commission engines over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/api"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/app"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/clock"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/config"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(config.NewLogger(cfg.Logging, os.Stdout))

	slog.Info("starting cebx",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"locale", cfg.Engines.Locale,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(cfg, clock.System{})
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(svc.Bus, svc.Repository, svc.Fraud, svc.Commission)
		if err := asyncWorker.Start(worker.Config{BatchScanInterval: cfg.Worker.BatchScanInterval}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		}
	}

	srv := api.NewServer(cfg.Server, svc.Repository, svc.Cache, svc.Bus, svc.Engines(), Version)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	slog.Info("cebx is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop consuming events before the server goes away.
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("cebx shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  CEBX decision layer")
	fmt.Println("  fraud scoring, dynamic pricing, commissions")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Storage:  %s\n", cfg.Repository.Driver)
	fmt.Printf("  Worker:   %t\n", cfg.Worker.Enabled)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /shipments                          - Record a shipment")
	fmt.Println("    POST /shipments/{id}/delivered           - Mark a shipment delivered")
	fmt.Println("    GET  /shipments/{id}/commission          - Commission breakdown")
	fmt.Println("    POST /shipments/{id}/fraud-scan          - Scan and record a verdict")
	fmt.Println("    POST /commission/calculate               - Commission for a shipment body")
	fmt.Println("    GET  /accounts/{id}/commission-report    - Commission report (from, to)")
	fmt.Println("    POST /pricing/quote                      - Dynamic price quote")
	fmt.Println("    POST /fraud/scan                         - Fraud score for a shipment body")
	fmt.Println("    POST /fraud/batch-scan                   - Scan recent created shipments")
	fmt.Println("    GET  /health /ready /metrics             - Operations")
	fmt.Println()
}
