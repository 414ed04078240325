package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/metrics"
	"github.com/LJTian/NewsAlert/internal/scheduler"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// 执行一轮采集推送后退出，适合由 GitHub Actions / cron 定时调用
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log, _ := logger.New(os.Getenv("LOG_LEVEL"))
		log = logger.OrNop(log)
		defer log.Sync()

		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error("missing required configuration", logger.String("missing", cfgErr.Error()))
		} else {
			log.Error("load config failed", logger.Err(err))
		}
		return 1
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, log.With(logger.String("component", "storage")))
	if err != nil {
		log.Error("init store failed", logger.Err(err))
		return 1
	}
	defer store.Close()

	// 单次运行不对外暴露指标，用私有 registry 避免污染全局
	m := metrics.New(prometheus.NewRegistry())

	rep := scheduler.FromConfig(cfg, store, log, m).RunOnce(ctx)
	log.Info("collect finished",
		logger.String("hashtag", rep.Hashtag),
		logger.Int("fetched", rep.Fetched),
		logger.Int("new", rep.New),
		logger.Int("matched", rep.Matched))
	return 0
}
