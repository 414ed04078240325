package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/redis/go-redis/v9"
)

const redisBatchSize = 500

// RedisStore 用一个 Redis SET 保存链接
type RedisStore struct {
	rdb *redis.Client
	key string
	log logger.Logger
}

func NewRedisStore(ctx context.Context, addr, key string, log logger.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	s := newRedisStore(rdb, key, log)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		s.log.Warn("redis ping failed", logger.String("addr", addr), logger.Err(err))
	}
	return s
}

func newRedisStore(rdb *redis.Client, key string, log logger.Logger) *RedisStore {
	if key == "" {
		key = "newsalert:processed_links"
	}
	return &RedisStore{rdb: rdb, key: key, log: logger.OrNop(log)}
}

func (s *RedisStore) Load(ctx context.Context) LinkSet {
	members, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		s.log.Warn("load links from redis failed, starting empty", logger.String("key", s.key), logger.Err(err))
		return NewLinkSet()
	}
	return NewLinkSet(members...)
}

// Save 只做 SADD，集合天然只增不减
func (s *RedisStore) Save(ctx context.Context, links LinkSet) error {
	if links.Len() == 0 {
		return nil
	}
	all := links.Sorted()
	pipe := s.rdb.Pipeline()
	for start := 0; start < len(all); start += redisBatchSize {
		end := min(start+redisBatchSize, len(all))
		members := make([]any, 0, end-start)
		for _, l := range all[start:end] {
			members = append(members, l)
		}
		pipe.SAdd(ctx, s.key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sadd %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
