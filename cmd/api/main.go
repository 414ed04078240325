package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/NewsAlert/internal/api"
	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/metrics"
	"github.com/LJTian/NewsAlert/internal/scheduler"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

// 常驻模式：cron 定时执行 + HTTP 状态接口
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot, _ := logger.New(os.Getenv("LOG_LEVEL"))
		logger.OrNop(boot).Error("load config failed", logger.Err(err))
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, log.With(logger.String("component", "storage")))
	if err != nil {
		log.Error("init store failed", logger.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sched := scheduler.FromConfig(cfg, store, log, m)
	if err := sched.Start(ctx, cfg.CronSpec, cfg.RunOnStart); err != nil {
		log.Error("init scheduler failed", logger.Err(err))
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	apiServer := api.NewServer(sched, store, reg, log.With(logger.String("component", "api")))
	router := api.NewRouter(apiServer, log, api.AuthConfig{
		User:          cfg.BasicAuthUser,
		Pass:          cfg.BasicAuthPass,
		PublicMetrics: cfg.MetricsPublic,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("starting api server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exit", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", logger.Err(err))
	}
	sched.Stop()
}
