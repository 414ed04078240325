package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// pageSource 单页 HTML 抓取的公共部分：固定 URL、固定请求头、超时
type pageSource struct {
	PageURL string
	BaseURL string
	Headers map[string]string
	Timeout time.Duration
}

func (p pageSource) newCollector(ctx context.Context) (*colly.Collector, error) {
	u, err := url.Parse(p.PageURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid page url %q", p.PageURL)
	}

	headers := p.Headers
	if headers == nil {
		headers = DefaultHeaders()
	}
	ua := headers["User-Agent"]
	if ua == "" {
		ua = browserUserAgent
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.UserAgent(ua),
		colly.StdlibContext(ctx),
		colly.DetectCharset(),
	)
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	c.SetRequestTimeout(timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			if k == "User-Agent" {
				continue
			}
			r.Headers.Set(k, v)
		}
	})
	return c, nil
}

// visit 访问页面并返回 colly 的错误（含非 2xx 状态）
func (p pageSource) visit(c *colly.Collector) error {
	var statusErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			statusErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		statusErr = err
	})
	if err := c.Visit(p.PageURL); err != nil {
		if statusErr != nil {
			return statusErr
		}
		return err
	}
	return statusErr
}

// absoluteURL 把相对链接补全为基于 BaseURL 的绝对地址
func (p pageSource) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(p.BaseURL)
	if err != nil || p.BaseURL == "" {
		return href
	}
	return base.ResolveReference(ref).String()
}

// cleanText 去掉首尾空白并把内部连续空白压成一个空格
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// anchor 读取 a 标签的标题文字与 href
func anchor(a *goquery.Selection) (title, href string) {
	href, _ = a.Attr("href")
	return cleanText(a.Text()), strings.TrimSpace(href)
}
