package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/NewsAlert/internal/collector"
	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromConfigWiresTelegram(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "HTML", r.FormValue("parse_mode"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		BotToken:        "TOKEN",
		ChatID:          "42",
		Keywords:        []string{"nga"},
		TelegramAPIBase: srv.URL,
		NotifyTimeout:   time.Second,
		SendInterval:    time.Millisecond,
		Location:        ict,
		FetchTimeout:    time.Second,
	}
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
	core, logs := observer.New(zapcore.InfoLevel)
	s := FromConfig(cfg, store, logger.FromZap(zap.New(core)), nil)
	require.Len(t, s.fetchers, 2)

	configured := logs.FilterMessage("scheduler configured").All()
	require.Len(t, configured, 1)
	assert.Equal(t, "nga", configured[0].ContextMap()["keywords"])
	assert.Equal(t, int64(2), configured[0].ContextMap()["sources"])

	// 替换掉真实站点
	s.fetchers = []collector.Fetcher{&fakeFetcher{name: "Fake", articles: []collector.Article{
		{Title: "Nga tấn công", Link: "https://x/1", Source: "Fake"},
	}}}
	rep := s.RunOnce(context.Background())

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, map[string]int{"delivered": 1}, rep.Notifications)
}
