package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/NewsAlert/internal/collector"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/notifier"
	"github.com/LJTian/NewsAlert/internal/processor"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeFetcher struct {
	name     string
	articles []collector.Article
	err      error
	panics   bool
	calls    int
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(context.Context) ([]collector.Article, error) {
	f.calls++
	if f.panics {
		panic("selector exploded")
	}
	return f.articles, f.err
}

type fakeSender struct {
	mu      sync.Mutex
	texts   []string
	outcome notifier.Outcome
	block   chan struct{}
}

func (f *fakeSender) Send(_ context.Context, text string) notifier.Outcome {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.outcome
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

type recordingStore struct {
	*storage.FileStore
	runs []storage.RunRecord
}

func (r *recordingStore) RecordRun(_ context.Context, rec storage.RunRecord) error {
	r.runs = append(r.runs, rec)
	return nil
}

var ict = time.FixedZone("ICT", 7*3600)

func fixedClock() time.Time {
	return time.Date(2026, 10, 17, 2, 15, 0, 0, time.UTC)
}

type harness struct {
	sched     *Scheduler
	sender    *fakeSender
	sleep     *recordingSleep
	store     *storage.FileStore
	logs      *observer.ObservedLogs
	statePath string
}

func newHarness(t *testing.T, keywords []string, fetchers ...collector.Fetcher) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed_links.json")
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))
	store := storage.NewFileStore(path, log)
	sender := &fakeSender{outcome: notifier.Delivered}
	sleep := &recordingSleep{}

	s := New(fetchers, processor.NewKeywordFilter(keywords), sender, store, Options{
		Logger:   log,
		Clock:    fixedClock,
		Sleep:    sleep.Sleep,
		Location: ict,
	})
	return &harness{sched: s, sender: sender, sleep: sleep, store: store, logs: logs, statePath: path}
}

func readState(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var links []string
	require.NoError(t, json.Unmarshal(raw, &links))
	return links
}

func TestRunOnceEndToEnd(t *testing.T) {
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{
		{Title: "Nga tấn công", Link: "https://x/1", Source: "Fake"},
	}}
	h := newHarness(t, []string{"nga"}, f)

	rep := h.sched.RunOnce(context.Background())

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "https://x/1")
	assert.Contains(t, sent[0], "<i>#17_10_2026_09h</i>")
	assert.Equal(t, []string{"https://x/1"}, readState(t, h.statePath))

	assert.Equal(t, "#17_10_2026_09h", rep.Hashtag)
	assert.Equal(t, 1, rep.Fetched)
	assert.Equal(t, 1, rep.New)
	assert.Equal(t, 1, rep.Matched)
	assert.Equal(t, 1, rep.Stored)
	assert.Equal(t, map[string]int{"delivered": 1}, rep.Notifications)

	// 第二轮不应重复推送
	h.sched.RunOnce(context.Background())
	assert.Len(t, h.sender.sent(), 1)
}

func TestRunOnceDeliversInReverseOrderWithPacing(t *testing.T) {
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{
		{Title: "Nga A", Link: "https://x/a", Source: "Fake"},
		{Title: "Nga B", Link: "https://x/b", Source: "Fake"},
		{Title: "Nga C", Link: "https://x/c", Source: "Fake"},
	}}
	h := newHarness(t, []string{"nga"}, f)

	h.sched.RunOnce(context.Background())

	sent := h.sender.sent()
	require.Len(t, sent, 3)
	for i, want := range []string{"https://x/c", "https://x/b", "https://x/a"} {
		assert.Contains(t, sent[i], want, "send #%d", i)
	}
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, h.sleep.waits)
}

func TestRunOncePersistsEvenWithoutMatches(t *testing.T) {
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{
		{Title: "Tin tức thể thao", Link: "https://x/2", Source: "Fake"},
		{Title: "Thời tiết", Link: "https://x/1", Source: "Fake"},
	}}
	h := newHarness(t, []string{"nga", "ukraine"}, f)

	rep := h.sched.RunOnce(context.Background())

	assert.Empty(t, h.sender.sent())
	assert.Empty(t, h.sleep.waits)
	assert.Equal(t, 0, rep.Matched)
	assert.Equal(t, []string{"https://x/1", "https://x/2"}, readState(t, h.statePath))
}

func TestRunOnceKeepsExistingLinks(t *testing.T) {
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{
		{Title: "Nga 1", Link: "https://x/1", Source: "Fake"},
		{Title: "Nga 2", Link: "https://x/2", Source: "Fake"},
	}}
	h := newHarness(t, []string{"nga"}, f)
	require.NoError(t, os.WriteFile(h.statePath, []byte(`["https://x/1","https://x/old"]`), 0o644))

	rep := h.sched.RunOnce(context.Background())

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "https://x/2")
	assert.Equal(t, 1, rep.New)
	assert.Equal(t, []string{"https://x/1", "https://x/2", "https://x/old"}, readState(t, h.statePath))
}

func TestRunOnceFetchErrorTreatedAsEmpty(t *testing.T) {
	broken := &fakeFetcher{name: "VnExpress", err: errors.New("fetch VnExpress: status 503")}
	panicky := &fakeFetcher{name: "Panicky", panics: true}
	ok := &fakeFetcher{name: "24h.com.vn", articles: []collector.Article{
		{Title: "Ukraine kêu gọi viện trợ khẩn cấp", Link: "https://x/u", Source: "24h.com.vn"},
	}}
	h := newHarness(t, []string{"ukraine"}, broken, panicky, ok)

	rep := h.sched.RunOnce(context.Background())

	assert.Equal(t, 1, ok.calls)
	assert.Len(t, h.sender.sent(), 1)
	require.Len(t, rep.Sources, 3)
	assert.Equal(t, "fetch VnExpress: status 503", rep.Sources[0].Error)
	assert.Contains(t, rep.Sources[1].Error, "panicked")
	assert.Equal(t, SourceReport{Name: "24h.com.vn", Articles: 1}, rep.Sources[2])
	assert.Equal(t, 2, h.logs.FilterMessage("fetch failed, treating as empty").Len())
}

func TestRunOnceCountsOutcomesButStillPersists(t *testing.T) {
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{
		{Title: "Nga 1", Link: "https://x/1", Source: "Fake"},
	}}
	h := newHarness(t, []string{"nga"}, f)
	h.sender.outcome = notifier.Exhausted

	rep := h.sched.RunOnce(context.Background())

	assert.Equal(t, map[string]int{"exhausted": 1}, rep.Notifications)
	assert.Equal(t, []string{"https://x/1"}, readState(t, h.statePath))
}

func TestRunOnceRecordsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := &recordingStore{FileStore: storage.NewFileStore(path, nil)}
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{{Title: "Nga", Link: "https://x/1", Source: "Fake"}}}
	sleep := &recordingSleep{}
	s := New([]collector.Fetcher{f}, processor.NewKeywordFilter([]string{"nga"}), &fakeSender{}, store, Options{
		Clock: fixedClock, Sleep: sleep.Sleep, Location: ict,
	})

	s.RunOnce(context.Background())

	require.Len(t, store.runs, 1)
	rec := store.runs[0]
	assert.Equal(t, "#17_10_2026_09h", rec.Hashtag)
	assert.Equal(t, 1, rec.Matched)
	assert.Equal(t, 1, rec.Stats["stored"])
}

func TestTriggerSkipsWhileBusy(t *testing.T) {
	f := &fakeFetcher{name: "Fake", articles: []collector.Article{{Title: "Nga", Link: "https://x/1", Source: "Fake"}}}
	h := newHarness(t, []string{"nga"}, f)
	h.sender.block = make(chan struct{})

	require.True(t, h.sched.Trigger())
	require.Eventually(t, h.sched.Busy, time.Second, 5*time.Millisecond)

	assert.False(t, h.sched.Trigger())
	_, ran := h.sched.TryRunOnce(context.Background())
	assert.False(t, ran)

	close(h.sender.block)
	h.sched.Stop()

	assert.False(t, h.sched.Busy())
	rep, ok := h.sched.LastReport()
	require.True(t, ok)
	assert.Equal(t, 1, rep.Matched)
}

func TestLastReportEmptyBeforeFirstRun(t *testing.T) {
	h := newHarness(t, []string{"nga"})
	_, ok := h.sched.LastReport()
	assert.False(t, ok)
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	h := newHarness(t, []string{"nga"})
	err := h.sched.Start(context.Background(), "not a cron", false)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid cron spec"))
}

func TestStartRunsOnStart(t *testing.T) {
	f := &fakeFetcher{name: "Fake"}
	h := newHarness(t, []string{"nga"}, f)

	require.NoError(t, h.sched.Start(context.Background(), "0 * * * *", true))
	require.Eventually(t, func() bool {
		_, ok := h.sched.LastReport()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	h.sched.Stop()

	assert.Equal(t, 1, f.calls)
}
