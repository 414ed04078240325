package collector

import "github.com/LJTian/NewsAlert/internal/config"

// DefaultFetchers 按固定顺序注册数据源：VnExpress、24h，之后是配置中的 RSS 源
func DefaultFetchers(cfg *config.Config) []Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	headers := DefaultHeaders()

	fetchers := []Fetcher{
		NewVnExpressFetcher(headers, timeout),
		NewTin24hFetcher(headers, timeout),
	}
	for _, f := range cfg.ExtraFeeds {
		fetchers = append(fetchers, NewRSSFetcher(f.Name, f.URL, timeout))
	}
	return fetchers
}
