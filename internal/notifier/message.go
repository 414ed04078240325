package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/NewsAlert/internal/collector"
)

// Telegram 单条消息的上限（按字符计）
const maxMessageRunes = 4096

const (
	messageTemplate = "📰 <b>%s - Tin tức mới</b>\n\n<b>%s</b>\n\n%s\n\n<i>%s</i>"
	// 模板去掉标签和占位符后剩下的可见文本
	messageSkeleton = "📰  - Tin tức mới\n\n\n\n\n\n"
	ellipsis        = "…"
)

// parse_mode=HTML 下这几个字符必须转义，否则 Telegram 直接 400
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// FormatMessage 生成推送正文。
// Telegram 的 4096 上限按解析后的可见文本计算，超长时只截标题，
// 模板、链接和 hashtag 保持完整
func FormatMessage(a collector.Article, hashtag string) string {
	fixed := utf8.RuneCountInString(messageSkeleton) +
		utf8.RuneCountInString(a.Source) +
		utf8.RuneCountInString(a.Link) +
		utf8.RuneCountInString(hashtag)
	title := shortenTitle(a.Title, maxMessageRunes-fixed)

	return fmt.Sprintf(messageTemplate,
		htmlEscaper.Replace(a.Source), htmlEscaper.Replace(title), htmlEscaper.Replace(a.Link), hashtag)
}

// shortenTitle 在转义前按字符截断，不会切开实体
func shortenTitle(title string, budget int) string {
	if utf8.RuneCountInString(title) <= budget {
		return title
	}
	if budget <= 0 {
		return ""
	}
	return truncateRunes(title, budget-1) + ellipsis
}

// Hashtag 形如 #17_10_2026_09h，按 loc 所在时区的小时分组
func Hashtag(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return "#" + t.Format("02_01_2006_15") + "h"
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	rs := []rune(s)
	return string(rs[:limit])
}
