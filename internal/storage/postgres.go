package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/NewsAlert/internal/logger"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ProcessedLink 已处理链接表，link 为主键。
// 链接长度没有上限，用 text 列，否则一条超长链接会让整批插入失败
type ProcessedLink struct {
	Link      string    `gorm:"primaryKey;type:text" json:"link"`
	Source    string    `gorm:"size:255;index" json:"source"` // 链接所在站点的 host
	CreatedAt time.Time `json:"createdAt"`
}

func (ProcessedLink) TableName() string { return "processed_links" }

// Run 每轮运行的摘要
type Run struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Hashtag    string            `gorm:"size:32;index" json:"hashtag"`
	StartedAt  time.Time         `gorm:"index" json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Fetched    int               `json:"fetched"`
	New        int               `json:"new"`
	Matched    int               `json:"matched"`
	Stats      datatypes.JSONMap `gorm:"type:jsonb" json:"stats"`

	CreatedAt time.Time `json:"createdAt"`
}

const postgresBatchSize = 500

type PostgresStore struct {
	DB  *gorm.DB
	log logger.Logger
}

func NewPostgresStore(dsn string, log logger.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(&ProcessedLink{}, &Run{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return newPostgresStore(db, log), nil
}

func newPostgresStore(db *gorm.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{DB: db, log: logger.OrNop(log)}
}

func (s *PostgresStore) Load(ctx context.Context) LinkSet {
	var links []string
	if err := s.DB.WithContext(ctx).Model(&ProcessedLink{}).Pluck("link", &links).Error; err != nil {
		s.log.Warn("load links from postgres failed, starting empty", logger.Err(err))
		return NewLinkSet()
	}
	return NewLinkSet(links...)
}

// Save 以 link 为幂等键批量插入，已存在的忽略
func (s *PostgresStore) Save(ctx context.Context, links LinkSet) error {
	if links.Len() == 0 {
		return nil
	}
	rows := make([]ProcessedLink, 0, links.Len())
	for _, l := range links.Sorted() {
		rows = append(rows, ProcessedLink{
			Link:   toValidUTF8(l),
			Source: linkHost(l),
		})
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, postgresBatchSize).Error
	if err != nil {
		return fmt.Errorf("insert processed links: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, r RunRecord) error {
	run := &Run{
		Hashtag:    r.Hashtag,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Fetched:    r.Fetched,
		New:        r.New,
		Matched:    r.Matched,
		Stats:      datatypes.JSONMap(r.Stats),
	}
	if err := s.DB.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func linkHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
