package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/household-extractor/internal/app"
	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{DetectLanguage: true})
	if err != nil {
		logger.Error("failed to start services", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(sctx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()
	if missing := a.OCR.MissingBinaries(); len(missing) > 0 {
		logger.Warn("ocr binaries missing; scanned documents will fail", "missing", missing)
	}

	httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		logger.Error("listen http", "addr", cfg.Server.HTTPAddr, "error", err)
		os.Exit(1)
	}
	var grpcLis net.Listener
	if cfg.Server.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.Server.GRPCAddr); err != nil {
			logger.Error("listen grpc", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(cfg.Server, a.Deps(), logger)
	httpSrv := server.NewHTTPServer(srv.Router(), cfg.Server.RequestTimeout)
	grpcSrv := server.NewGRPCServer(logger)

	logger.Info("householdd starting",
		"http", cfg.Server.HTTPAddr,
		"grpc", cfg.Server.GRPCAddr,
		"db_driver", cfg.Database.Driver,
		"ai", a.Pipeline.AIEnabled())
	if err := server.Run(ctx, httpSrv, grpcSrv, server.Listeners{HTTP: httpLis, GRPC: grpcLis}, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
}
