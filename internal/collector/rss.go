package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSFetcher 额外的 RSS 源，按 feed 中的顺序输出
type RSSFetcher struct {
	SourceName string
	FeedURL    string
	parser     *gofeed.Parser
}

func NewRSSFetcher(name, feedURL string, timeout time.Duration) *RSSFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	p := gofeed.NewParser()
	p.UserAgent = browserUserAgent
	p.Client = &http.Client{Timeout: timeout}
	return &RSSFetcher{SourceName: name, FeedURL: feedURL, parser: p}
}

func (r *RSSFetcher) Name() string {
	return r.SourceName
}

func (r *RSSFetcher) Fetch(ctx context.Context) ([]Article, error) {
	feed, err := r.parser.ParseURLWithContext(r.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.SourceName, err)
	}

	results := make([]Article, 0, len(feed.Items))
	seen := make(map[string]struct{}, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanText(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		results = append(results, Article{Title: title, Link: link, Source: r.SourceName})
	}
	return results, nil
}
