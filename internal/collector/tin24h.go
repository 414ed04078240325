package collector

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"
)

const (
	tin24hSource  = "24h.com.vn"
	tin24hPageURL = "https://www.24h.com.vn/tin-tuc-quoc-te-c415.html"
	tin24hBaseURL = "https://www.24h.com.vn"

	// 栏目 c415 下的文章链接都带这个标记
	tin24hLinkMarker  = "-c415a"
	tin24hMinTitleLen = 15
)

// Tin24hFetcher 抓取 24h.com.vn「Tin tức quốc tế」栏目。
// 页面结构经常调整，这里不依赖 class，直接按链接特征筛选所有 a 标签
type Tin24hFetcher struct {
	pageSource
}

func NewTin24hFetcher(headers map[string]string, timeout time.Duration) *Tin24hFetcher {
	return &Tin24hFetcher{pageSource{
		PageURL: tin24hPageURL,
		BaseURL: tin24hBaseURL,
		Headers: headers,
		Timeout: timeout,
	}}
}

func (t *Tin24hFetcher) Name() string {
	return tin24hSource
}

func (t *Tin24hFetcher) Fetch(ctx context.Context) ([]Article, error) {
	c, err := t.newCollector(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Article, 0, 60)
	found := make(map[string]struct{})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		title, href := anchor(e.DOM)
		if !isTin24hArticleLink(href) {
			return
		}
		link := t.absoluteURL(href)
		if link == "" {
			return
		}
		if _, dup := found[link]; dup {
			return
		}
		// 同一篇文章常有图片链接（无文字）和标题链接两个 a，短标题的跳过但不记为已见
		if utf8.RuneCountInString(title) < tin24hMinTitleLen {
			return
		}
		found[link] = struct{}{}
		results = append(results, Article{Title: title, Link: link, Source: tin24hSource})
	})

	if err := t.visit(c); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", tin24hSource, err)
	}
	return results, nil
}

func isTin24hArticleLink(href string) bool {
	return strings.Contains(href, tin24hLinkMarker) && strings.Contains(href, ".html")
}
