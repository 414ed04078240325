package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	vnexpressSource  = "VnExpress"
	vnexpressPageURL = "https://vnexpress.net/the-gioi"
	vnexpressBaseURL = "https://vnexpress.net"
)

// VnExpressFetcher 抓取 VnExpress「Thế giới」栏目列表页
type VnExpressFetcher struct {
	pageSource
}

func NewVnExpressFetcher(headers map[string]string, timeout time.Duration) *VnExpressFetcher {
	return &VnExpressFetcher{pageSource{
		PageURL: vnexpressPageURL,
		BaseURL: vnexpressBaseURL,
		Headers: headers,
		Timeout: timeout,
	}}
}

func (v *VnExpressFetcher) Name() string {
	return vnexpressSource
}

func (v *VnExpressFetcher) Fetch(ctx context.Context) ([]Article, error) {
	c, err := v.newCollector(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Article, 0, 40)
	seen := make(map[string]struct{})

	// 每条新闻是一个 article.item-news，标题链接在 h3.title-news 下
	c.OnHTML("article.item-news", func(e *colly.HTMLElement) {
		a := e.DOM.Find("h3.title-news a").First()
		if a.Length() == 0 {
			return
		}
		title, href := anchor(a)
		link := v.absoluteURL(href)
		if title == "" || link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		results = append(results, Article{Title: title, Link: link, Source: vnexpressSource})
	})

	if err := v.visit(c); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", vnexpressSource, err)
	}
	return results, nil
}
