package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LJTian/NewsAlert/internal/collector"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/metrics"
	"github.com/LJTian/NewsAlert/internal/notifier"
	"github.com/LJTian/NewsAlert/internal/processor"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/robfig/cron/v3"
)

const defaultSendInterval = time.Second

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
	// Clock 和 Sleep 留给测试替换
	Clock        func() time.Time
	Sleep        notifier.SleepFunc
	SendInterval time.Duration
	Location     *time.Location
}

// Scheduler 串行执行一轮 LOAD_STATE → FETCH → FILTER → DELIVER → PERSIST，
// daemon 模式下由 cron 定时触发
type Scheduler struct {
	fetchers []collector.Fetcher
	filter   *processor.KeywordFilter
	sender   notifier.Sender
	store    storage.LinkStore

	log      logger.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
	sleep    notifier.SleepFunc
	interval time.Duration
	loc      *time.Location

	// 同一时间只允许一轮
	runMu sync.Mutex
	cron  *cron.Cron
	ctx   context.Context
	wg    sync.WaitGroup

	lastMu sync.RWMutex
	last   *Report
}

func New(fetchers []collector.Fetcher, filter *processor.KeywordFilter, sender notifier.Sender, store storage.LinkStore, opts Options) *Scheduler {
	s := &Scheduler{
		fetchers: fetchers,
		filter:   filter,
		sender:   sender,
		store:    store,
		log:      logger.OrNop(opts.Logger),
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		sleep:    opts.Sleep,
		interval: opts.SendInterval,
		loc:      opts.Location,
		ctx:      context.Background(),
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.sleep == nil {
		s.sleep = notifier.SleepContext
	}
	if s.interval <= 0 {
		s.interval = defaultSendInterval
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// RunOnce 执行一轮；如果已有一轮在跑会等待它结束
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.run(ctx)
}

// TryRunOnce 已有一轮在跑时立即返回 false
func (s *Scheduler) TryRunOnce(ctx context.Context) (Report, bool) {
	if !s.runMu.TryLock() {
		return Report{}, false
	}
	defer s.runMu.Unlock()
	return s.run(ctx), true
}

// Trigger 在后台启动一轮，忙时返回 false
func (s *Scheduler) Trigger() bool {
	if !s.runMu.TryLock() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		s.run(s.ctx)
	}()
	return true
}

// Busy 是否有一轮正在执行
func (s *Scheduler) Busy() bool {
	if s.runMu.TryLock() {
		s.runMu.Unlock()
		return false
	}
	return true
}

// Start 按 cron 表达式定时执行，runOnStart 时立即在后台跑一轮
func (s *Scheduler) Start(ctx context.Context, spec string, runOnStart bool) error {
	s.ctx = ctx
	c := cron.New()
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.log.Info("scheduler started", logger.String("cron", spec))

	if runOnStart {
		s.Trigger()
	}
	return nil
}

func (s *Scheduler) tick() {
	if !s.Trigger() {
		s.log.Warn("previous run still active, skip tick")
	}
}

// Stop 停止定时器并等待正在执行的一轮结束
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// LastReport 最近一轮的结果
func (s *Scheduler) LastReport() (Report, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

func (s *Scheduler) run(ctx context.Context) Report {
	start := s.clock()
	rep := Report{
		Hashtag:       notifier.Hashtag(start, s.loc),
		StartedAt:     start,
		Notifications: make(map[string]int),
	}
	s.log.Info("start run", logger.String("hashtag", rep.Hashtag))

	seen := s.store.Load(ctx)
	s.log.Info("state loaded", logger.Int("links", seen.Len()))

	articles := s.fetchAll(ctx, &rep)
	rep.Fetched = len(articles)

	res := s.filter.Process(articles, seen)
	rep.New = res.New
	rep.Matched = len(res.ToNotify)
	s.log.Info("filter done",
		logger.Int("fetched", rep.Fetched), logger.Int("new", rep.New), logger.Int("matched", rep.Matched))

	s.deliver(ctx, res.ToNotify, &rep)

	// 取消也要落盘，否则下一轮会重复处理
	persistCtx := context.WithoutCancel(ctx)
	rep.Stored = res.Links.Len()
	if err := s.store.Save(persistCtx, res.Links); err != nil {
		rep.SaveError = err.Error()
		s.metrics.ObserveSaveFailure()
		s.log.Error("save state failed", logger.Err(err))
	}

	rep.FinishedAt = s.clock()
	if rec, ok := s.store.(storage.RunRecorder); ok {
		if err := rec.RecordRun(persistCtx, rep.record()); err != nil {
			s.log.Warn("record run failed", logger.Err(err))
		}
	}
	s.metrics.ObserveRun(rep.FinishedAt.Sub(start), rep.New, rep.Stored)
	s.setLast(rep)

	s.log.Info("run done",
		logger.Int("matched", rep.Matched),
		logger.Int("stored", rep.Stored),
		logger.Duration("took", rep.FinishedAt.Sub(start)))
	return rep
}

// fetchAll 按注册顺序抓取，单个源失败只记日志，按空结果处理
func (s *Scheduler) fetchAll(ctx context.Context, rep *Report) []collector.Article {
	var all []collector.Article
	for _, f := range s.fetchers {
		name := f.Name()
		s.log.Info("fetch source", logger.String("source", name))
		items, err := safeFetch(ctx, f)
		s.metrics.ObserveFetch(name, len(items), err)

		src := SourceReport{Name: name}
		if err != nil {
			src.Error = err.Error()
			rep.Sources = append(rep.Sources, src)
			s.log.Warn("fetch failed, treating as empty", logger.String("source", name), logger.Err(err))
			continue
		}
		src.Articles = len(items)
		rep.Sources = append(rep.Sources, src)
		s.log.Info("fetch done", logger.String("source", name), logger.Int("articles", len(items)))
		all = append(all, items...)
	}
	return all
}

func safeFetch(ctx context.Context, f collector.Fetcher) (items []collector.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("fetch %s panicked: %v", f.Name(), r)
		}
	}()
	return f.Fetch(ctx)
}

// deliver 倒序推送，让最旧的文章先到；每条之后固定间隔
func (s *Scheduler) deliver(ctx context.Context, articles []collector.Article, rep *Report) {
	for i := len(articles) - 1; i >= 0; i-- {
		a := articles[i]
		out := s.sender.Send(ctx, notifier.FormatMessage(a, rep.Hashtag))
		rep.Notifications[out.String()]++
		s.metrics.ObserveNotification(out.String())
		s.log.Info("article dispatched",
			logger.String("source", a.Source), logger.String("link", a.Link), logger.String("outcome", out.String()))

		if err := s.sleep(ctx, s.interval); err != nil {
			s.log.Warn("delivery interrupted", logger.Int("remaining", i), logger.Err(err))
			return
		}
	}
}

func (s *Scheduler) setLast(rep Report) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	s.last = &rep
}
