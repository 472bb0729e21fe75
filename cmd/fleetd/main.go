package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/fleet-tracker/internal/app"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", common.PublicMessage(err))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{Migrate: true})
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Ping DB to ensure connectivity
	if err := server.PingDB(ctx, a.DB, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Processor:      a.Processor,
			Vehicles:       a.Vehicles,
			Exporter:       a.Exporter,
			DB:             a.DB,
			MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
			RequestTimeout: cfg.Server.RequestTimeout,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	svc := server.NewDocumentService(a.Processor, a.Vehicles, a.Exporter, cfg.Pipeline.MaxUploadBytes, logger)
	grpcSrv := server.NewGRPCServer(svc, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("fleetd http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("fleetd grpc listening", "addr", cfg.Server.GRPCAddr, "ai_enabled", cfg.AIEnabled())
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
