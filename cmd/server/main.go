package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/config"
	"github.com/mamadbah2/cafeledger/internal/metrics"
	"github.com/mamadbah2/cafeledger/internal/repository"
	"github.com/mamadbah2/cafeledger/internal/repository/mongodb"
	"github.com/mamadbah2/cafeledger/internal/scheduler"
	"github.com/mamadbah2/cafeledger/internal/server/handlers"
	"github.com/mamadbah2/cafeledger/internal/server/router"
	ledgersvc "github.com/mamadbah2/cafeledger/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/cafeledger/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/cafeledger/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/cafeledger/pkg/clients/whatsapp"
	"github.com/mamadbah2/cafeledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid reporting timezone", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	store, err := repository.NewStore(context.Background(), *cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init ledger store", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	store = metrics.InstrumentStore(store, appMetrics)
	baseLogger.Info("ledger store ready", zap.String("backend", cfg.Storage.Backend))

	ledgerSvc := ledgersvc.NewService(store, loc, logger.Named(baseLogger, "svc.ledger"), ledgersvc.WithMetrics(appMetrics))
	reportingSvc := reportingsvc.NewService(store, loc, logger.Named(baseLogger, "svc.reporting"), reportingsvc.WithMetrics(appMetrics))

	var (
		schedArchive scheduler.ReportArchive
		httpArchive  handlers.ReportArchive
		messagingSvc whatsappsvc.MessagingService
	)

	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		schedArchive, httpArchive = mongoRepo, mongoRepo
		baseLogger.Info("report archive enabled", zap.String("db", cfg.MongoDB.DBName))
	} else {
		baseLogger.Warn("mongodb uri missing, report archive disabled")
	}

	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(whatsClient, logger.Named(baseLogger, "svc.whatsapp"))
		baseLogger.Info("whatsapp delivery enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, report delivery disabled")
	}

	engine := router.New(router.Handlers{
		Ledger:  handlers.NewLedgerHandler(ledgerSvc, logger.Named(baseLogger, "handlers.ledger")),
		Reports: handlers.NewReportHandler(reportingSvc, httpArchive, logger.Named(baseLogger, "handlers.reports")),
		Metrics: appMetrics.Handler(),
	}, logger.Named(baseLogger, "router"))

	if schedArchive != nil || messagingSvc != nil {
		sched := scheduler.NewScheduler(cfg.Reporting, loc, reportingSvc, schedArchive, messagingSvc, logger.Named(baseLogger, "scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
