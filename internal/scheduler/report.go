package scheduler

import (
	"time"

	"github.com/LJTian/NewsAlert/internal/storage"
)

// SourceReport 单个源在本轮的抓取结果
type SourceReport struct {
	Name     string `json:"name"`
	Articles int    `json:"articles"`
	Error    string `json:"error,omitempty"`
}

// Report 一轮运行的摘要，只存在于内存中
type Report struct {
	Hashtag       string         `json:"hashtag"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    time.Time      `json:"finishedAt"`
	Fetched       int            `json:"fetched"`
	New           int            `json:"new"`
	Matched       int            `json:"matched"`
	Stored        int            `json:"stored"`
	Sources       []SourceReport `json:"sources"`
	Notifications map[string]int `json:"notifications"`
	SaveError     string         `json:"saveError,omitempty"`
}

func (r Report) record() storage.RunRecord {
	sources := make(map[string]any, len(r.Sources))
	for _, s := range r.Sources {
		if s.Error != "" {
			sources[s.Name] = map[string]any{"articles": s.Articles, "error": s.Error}
			continue
		}
		sources[s.Name] = map[string]any{"articles": s.Articles}
	}
	notifications := make(map[string]any, len(r.Notifications))
	for k, v := range r.Notifications {
		notifications[k] = v
	}
	return storage.RunRecord{
		Hashtag:    r.Hashtag,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Fetched:    r.Fetched,
		New:        r.New,
		Matched:    r.Matched,
		Stats: map[string]any{
			"stored":        r.Stored,
			"sources":       sources,
			"notifications": notifications,
		},
	}
}
