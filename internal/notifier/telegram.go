package notifier

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/go-resty/resty/v2"
)

// Outcome 一次 Send 的最终结果
type Outcome int

const (
	Delivered Outcome = iota
	PermanentFailure
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case PermanentFailure:
		return "permanent_failure"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Sender 调度器只依赖这个接口
type Sender interface {
	Send(ctx context.Context, text string) Outcome
}

// SleepFunc 可注入的等待函数，ctx 取消时返回错误
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext 真实的等待
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const (
	defaultAPIBase      = "https://api.telegram.org"
	defaultSendTimeout  = 20 * time.Second
	defaultMaxAttempts  = 5
	defaultRetryAfter   = 5
	transportRetryDelay = 5 * time.Second
	bodySnippetLen      = 300
)

type Options struct {
	APIBase     string
	BotToken    string
	ChatID      string
	Timeout     time.Duration
	MaxAttempts int
	Sleep       SleepFunc
	Logger      logger.Logger
}

// TelegramNotifier 通过 Bot API sendMessage 推送 HTML 消息，
// 429 按 retry_after 等待重试，网络错误固定等 5s 重试，其他状态码不重试
type TelegramNotifier struct {
	client      *resty.Client
	botToken    string
	chatID      string
	maxAttempts int
	sleep       SleepFunc
	log         logger.Logger
}

func NewTelegramNotifier(opts Options) *TelegramNotifier {
	base := strings.TrimRight(opts.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout)

	return &TelegramNotifier{
		client:      client,
		botToken:    opts.BotToken,
		chatID:      opts.ChatID,
		maxAttempts: attempts,
		sleep:       sleep,
		log:         logger.OrNop(opts.Logger),
	}
}

// Send 不截断 text，长度由 FormatMessage 控制
func (n *TelegramNotifier) Send(ctx context.Context, text string) Outcome {
	var lastFailure string
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		resp, err := n.client.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"chat_id":    n.chatID,
				"text":       text,
				"parse_mode": "HTML",
			}).
			Post("/bot" + n.botToken + "/sendMessage")

		var (
			wait   time.Duration
			msg    string
			fields []logger.Field
		)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				n.log.Warn("telegram send canceled", logger.Int("attempt", attempt), logger.Err(ctx.Err()))
				return Exhausted
			}
			wait = transportRetryDelay
			msg = "telegram send failed, retrying"
			lastFailure = n.redact(err.Error())
			fields = []logger.Field{logger.String("error", lastFailure)}
		case resp.StatusCode() == 200:
			n.log.Info("telegram message sent", logger.Int("attempt", attempt))
			return Delivered
		case resp.StatusCode() == 429:
			retryAfter := parseRetryAfter(resp.Body())
			wait = time.Duration(retryAfter+1) * time.Second
			msg = "telegram rate limited, retrying"
			fields = []logger.Field{logger.Int("retry_after", retryAfter)}
			lastFailure = "rate limited"
		default:
			n.log.Error("telegram rejected message",
				logger.Int("status", resp.StatusCode()), logger.String("body", snippet(resp.String())))
			return PermanentFailure
		}

		if attempt == n.maxAttempts {
			break
		}
		n.log.Warn(msg, append(fields, logger.Int("attempt", attempt), logger.Duration("wait", wait))...)
		if err := n.sleep(ctx, wait); err != nil {
			n.log.Warn("telegram retry wait canceled", logger.Int("attempt", attempt), logger.Err(err))
			return Exhausted
		}
	}

	n.log.Error("telegram send gave up", logger.Int("attempts", n.maxAttempts), logger.String("last_failure", lastFailure))
	return Exhausted
}

// parseRetryAfter 读取 {"parameters":{"retry_after":N}}，缺失或无法解析时取 5
func parseRetryAfter(body []byte) int {
	var payload struct {
		Parameters struct {
			RetryAfter *int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return defaultRetryAfter
	}
	if payload.Parameters.RetryAfter == nil || *payload.Parameters.RetryAfter < 0 {
		return defaultRetryAfter
	}
	return *payload.Parameters.RetryAfter
}

// redact 请求 URL 里带着 /bot<token>/，错误文本写日志前先抹掉
func (n *TelegramNotifier) redact(s string) string {
	if n.botToken == "" {
		return s
	}
	return strings.ReplaceAll(s, n.botToken, "<redacted>")
}

func snippet(s string) string {
	return truncateRunes(strings.TrimSpace(s), bodySnippetLen)
}
