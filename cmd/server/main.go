package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/patisso/patisso/internal/config"
	"github.com/patisso/patisso/internal/db"
	"github.com/patisso/patisso/internal/gateway"
	"github.com/patisso/patisso/internal/notify"
	"github.com/patisso/patisso/internal/repository"
	"github.com/patisso/patisso/internal/server"
	"github.com/patisso/patisso/internal/services"
	"github.com/patisso/patisso/internal/sweep"
	"github.com/patisso/patisso/pkg/logging"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()
	logging.Setup(cfg.Env)

	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(); err != nil {
			slog.Error("migrate-only failed", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	ledgerRepo := repository.NewGormLedgerRepository(dbConn)
	orderRepo := repository.NewGormOrderRepository(dbConn)
	gw := gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	splitSvc := services.NewSplitPaymentService(
		ledgerRepo, orderRepo, gw, notify.LogDispatcher{},
		services.SplitPolicy{MinTotal: cfg.SplitMinTotal, Currency: cfg.Currency},
		cfg.GatewayTimeout,
	)
	orderSvc := services.NewOrderService(orderRepo)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(dbConn, splitSvc, orderSvc),
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweep.New(splitSvc, cfg.SweepInterval).Run(sweepCtx)

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	slog.Info("server gracefully stopped")
}
