// README: Entry point; loads config, wires stores and the pricing service, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"dronequote/internal/config"
	httptransport "dronequote/internal/http"
	"dronequote/internal/infra"
	"dronequote/internal/metrics"
	"dronequote/internal/modules/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN, cfg.ConnectTimeout, logger)
	if err != nil {
		logger.Fatal("postgres init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.ConnectTimeout, logger)
	if err != nil {
		logger.Fatal("redis init", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pricingStore := pricing.NewStore(dbPool, pricing.BreakerConfig{
		MaxFailures: cfg.Pricing.BreakerFailures,
		OpenTimeout: cfg.Pricing.BreakerOpen,
	})
	holdStore := pricing.NewHoldStore(redisClient)
	pricingSvc := pricing.NewService(pricingStore, holdStore, logger.Named("pricing"), pricing.Options{
		HoldTTL:         cfg.Pricing.QuoteTTL,
		DefaultCurrency: cfg.Pricing.Currency,
		Recorder:        m,
	})

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Pricing: pricingSvc,
		Metrics: m,
		Logger:  logger.Named("http"),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("quote api listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}
