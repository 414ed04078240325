// Package metrics 运行指标。*Metrics 为 nil 时所有记录方法都是空操作
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsalert"

type Metrics struct {
	RunsTotal         prometheus.Counter
	ArticlesFetched   *prometheus.CounterVec
	FetchErrors       *prometheus.CounterVec
	ArticlesNew       prometheus.Counter
	Notifications     *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LinksStored       prometheus.Gauge
	StateSaveFailures prometheus.Counter
}

// New 在 reg 上注册所有指标；reg 为 nil 时使用默认 registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of completed runs",
		}),
		ArticlesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Articles extracted per source",
		}, []string{"source"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed fetches per source",
		}, []string{"source"}),
		ArticlesNew: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_new_total",
			Help:      "Articles whose link had not been seen before",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Telegram sends by outcome",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one run",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		LinksStored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "links_stored",
			Help:      "Size of the processed link set after the last run",
		}),
		StateSaveFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_save_failures_total",
			Help:      "Failed writes of the processed link set",
		}),
	}
}

func (m *Metrics) ObserveFetch(source string, n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
		return
	}
	m.ArticlesFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSaveFailure() {
	if m == nil {
		return
	}
	m.StateSaveFailures.Inc()
}

// ObserveRun 在一轮结束时调用
func (m *Metrics) ObserveRun(d time.Duration, newLinks, stored int) {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
	m.ArticlesNew.Add(float64(newLinks))
	m.RunDuration.Observe(d.Seconds())
	m.LinksStored.Set(float64(stored))
}
