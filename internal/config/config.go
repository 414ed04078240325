package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Feed 额外的 RSS 源，EXTRA_FEEDS 中以 name|url 表示
type Feed struct {
	Name string
	URL  string
}

type Config struct {
	// Telegram 凭据，缺失即视为启动失败
	BotToken string
	ChatID   string

	Keywords []string

	// 已处理链接的存储：file / redis / postgres / bolt
	StoreBackend string
	StateFile    string
	RedisAddr    string
	RedisKey     string
	PostgresDSN  string
	BoltPath     string

	TelegramAPIBase   string
	FetchTimeout      time.Duration
	NotifyTimeout     time.Duration
	NotifyMaxAttempts int
	SendInterval      time.Duration

	// 生成 hashtag 用的时区
	Location   *time.Location
	ExtraFeeds []Feed

	// 以下仅 daemon 模式使用
	CronSpec      string
	RunOnStart    bool
	AppPort       string
	BasicAuthUser string
	BasicAuthPass string
	// 为 true 时 /metrics 不做 Basic Auth，方便 Prometheus 抓取
	MetricsPublic bool

	LogLevel string
}

// ConfigError 表示必需配置缺失
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required config: " + strings.Join(e.Missing, ", ")
}

// Load 读取完整配置并校验 BOT_TOKEN / CHAT_ID
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithoutSecrets 供只操作存储的工具使用，不要求 Telegram 凭据
func LoadWithoutSecrets() (*Config, error) {
	return load()
}

func (c *Config) Validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.ChatID == "" {
		missing = append(missing, "CHAT_ID")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func load() (*Config, error) {
	// .env 只是本地开发的便利，不存在时忽略；已有的环境变量不会被覆盖
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		BotToken:          strings.TrimSpace(v.GetString("bot_token")),
		ChatID:            strings.TrimSpace(v.GetString("chat_id")),
		Keywords:          normalizeKeywords(stringList(v, "keywords")),
		StoreBackend:      strings.ToLower(strings.TrimSpace(v.GetString("store_backend"))),
		StateFile:         v.GetString("state_file"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisKey:          v.GetString("redis_key"),
		PostgresDSN:       v.GetString("postgres_dsn"),
		BoltPath:          v.GetString("bolt_path"),
		TelegramAPIBase:   strings.TrimRight(v.GetString("telegram_api_base"), "/"),
		FetchTimeout:      v.GetDuration("fetch_timeout"),
		NotifyTimeout:     v.GetDuration("notify_timeout"),
		NotifyMaxAttempts: v.GetInt("notify_max_attempts"),
		SendInterval:      v.GetDuration("send_interval"),
		Location:          loadLocation(v.GetString("timezone")),
		ExtraFeeds:        parseFeeds(stringList(v, "extra_feeds")),
		CronSpec:          v.GetString("cron_spec"),
		RunOnStart:        v.GetBool("run_on_start"),
		AppPort:           v.GetString("app_port"),
		BasicAuthUser:     v.GetString("app_basic_user"),
		BasicAuthPass:     v.GetString("app_basic_pass"),
		MetricsPublic:     v.GetBool("metrics_public"),
		LogLevel:          v.GetString("log_level"),
	}

	if cfg.NotifyMaxAttempts <= 0 {
		cfg.NotifyMaxAttempts = 5
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("keywords", "nga,ukraine")
	v.SetDefault("store_backend", "file")
	v.SetDefault("state_file", "processed_links.json")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_key", "newsalert:processed_links")
	v.SetDefault("postgres_dsn", "host=localhost user=newsalert password=newsalert dbname=newsalert port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("bolt_path", "processed_links.db")
	v.SetDefault("telegram_api_base", "https://api.telegram.org")
	v.SetDefault("fetch_timeout", 15*time.Second)
	v.SetDefault("notify_timeout", 20*time.Second)
	v.SetDefault("notify_max_attempts", 5)
	v.SetDefault("send_interval", time.Second)
	v.SetDefault("timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("extra_feeds", "")
	v.SetDefault("cron_spec", "0 * * * *")
	v.SetDefault("run_on_start", true)
	v.SetDefault("app_port", "9000")
	v.SetDefault("metrics_public", false)
	v.SetDefault("log_level", "info")
}

// stringList 兼容环境变量里的逗号分隔串与配置文件里的 YAML 列表
func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitList(s)
	}
	return v.GetStringSlice(key)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func parseFeeds(entries []string) []Feed {
	feeds := make([]Feed, 0, len(entries))
	for _, e := range entries {
		name, url, ok := strings.Cut(e, "|")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			continue
		}
		feeds = append(feeds, Feed{Name: name, URL: url})
	}
	return feeds
}

// loadLocation 系统缺少 tzdata 时回退到固定 UTC+7
func loadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*3600)
}
