package scheduler

import (
	"strings"

	"github.com/LJTian/NewsAlert/internal/collector"
	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/metrics"
	"github.com/LJTian/NewsAlert/internal/notifier"
	"github.com/LJTian/NewsAlert/internal/processor"
	"github.com/LJTian/NewsAlert/internal/storage"
)

// FromConfig 按配置组装数据源、过滤器和 Telegram 推送，cmd/collect 与 cmd/api 共用
func FromConfig(cfg *config.Config, store storage.LinkStore, log logger.Logger, m *metrics.Metrics) *Scheduler {
	log = logger.OrNop(log)
	tg := notifier.NewTelegramNotifier(notifier.Options{
		APIBase:     cfg.TelegramAPIBase,
		BotToken:    cfg.BotToken,
		ChatID:      cfg.ChatID,
		Timeout:     cfg.NotifyTimeout,
		MaxAttempts: cfg.NotifyMaxAttempts,
		Logger:      log.With(logger.String("component", "notifier")),
	})
	fetchers := collector.DefaultFetchers(cfg)
	filter := processor.NewKeywordFilter(cfg.Keywords)
	log.Info("scheduler configured",
		logger.Int("sources", len(fetchers)),
		logger.String("keywords", strings.Join(filter.Keywords(), ",")))

	return New(
		fetchers,
		filter,
		tg,
		store,
		Options{
			Logger:       log.With(logger.String("component", "scheduler")),
			Metrics:      m,
			SendInterval: cfg.SendInterval,
			Location:     cfg.Location,
		},
	)
}
