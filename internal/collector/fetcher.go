package collector

import (
	"context"
	"time"
)

// Article 一次采集得到的文章，Link 是跨轮去重的唯一标识
type Article struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

// Fetcher 抽象每一个数据源。失败时返回 error，由调用方决定按空结果处理
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]Article, error)
}

const (
	// 伪装成普通浏览器，部分站点会拒绝默认 UA
	browserUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.0.0 Safari/537.36"
	defaultFetchTimeout = 15 * time.Second
)

// DefaultHeaders 所有站点共用的请求头
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "vi-VN,vi;q=0.9,en;q=0.8",
	}
}
