package processor

import (
	"strings"

	"github.com/LJTian/NewsAlert/internal/collector"
	"github.com/LJTian/NewsAlert/internal/storage"
)

// Result 一次过滤的输出：待推送文章、更新后的链接集合、本轮新链接数
type Result struct {
	ToNotify []collector.Article
	Links    storage.LinkSet
	New      int
}

// KeywordFilter 按关键词（子串、不区分大小写、任一命中）挑出新文章
type KeywordFilter struct {
	keywords []string
}

func NewKeywordFilter(keywords []string) *KeywordFilter {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		kws = append(kws, k)
	}
	return &KeywordFilter{keywords: kws}
}

func (f *KeywordFilter) Keywords() []string {
	out := make([]string, len(f.keywords))
	copy(out, f.keywords)
	return out
}

// Matches 标题是否包含任一关键词
func (f *KeywordFilter) Matches(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Process 不修改 seen。凡是未见过的链接都会进入 Links（无论是否命中），
// 这样不相关的文章下一轮也不会被重复判断
func (f *KeywordFilter) Process(articles []collector.Article, seen storage.LinkSet) Result {
	res := Result{Links: seen.Clone()}
	for _, a := range articles {
		if seen.Has(a.Link) {
			continue
		}
		if !res.Links.Has(a.Link) {
			res.New++
		}
		res.Links.Add(a.Link)
		if f.Matches(a.Title) {
			res.ToNotify = append(res.ToNotify, a)
		}
	}
	return res
}
