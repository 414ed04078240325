package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/LJTian/NewsAlert/internal/logger"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// LinkStore 持久化已处理链接。Load 不返回错误：读取失败时记日志并返回空集合，
// 最坏情况只是重复推送一次
type LinkStore interface {
	Load(ctx context.Context) LinkSet
	Save(ctx context.Context, links LinkSet) error
	Close() error
}

// RunRecord 一次运行的摘要，供支持的后端落库
type RunRecord struct {
	Hashtag    string
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int
	New        int
	Matched    int
	Stats      map[string]any
}

// RunRecorder 由能够保存运行记录的后端实现（目前只有 postgres）
type RunRecorder interface {
	RecordRun(ctx context.Context, r RunRecord) error
}

// Open 按配置构造存储后端
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (LinkStore, error) {
	log = logger.OrNop(log)
	backend := strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	switch backend {
	case "", BackendFile:
		return NewFileStore(cfg.StateFile, log), nil
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisKey, log), nil
	case BackendPostgres:
		return NewPostgresStore(cfg.PostgresDSN, log)
	case BackendBolt:
		return NewBoltStore(cfg.BoltPath, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
