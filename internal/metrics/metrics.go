// Package metrics 管线运行指标，通过 /metrics 以 Prometheus 格式暴露
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ainewshub"

type Metrics struct {
	StoriesFetched  *prometheus.CounterVec
	DedupDropped    *prometheus.CounterVec
	StoriesSelected prometheus.Gauge
	CacheFallbacks  prometheus.Counter
	RefreshDuration prometheus.Histogram
	LastRefresh     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New 在给定的 registry 上注册全部指标；传 nil 时使用独立的新 registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		StoriesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_fetched_total",
			Help:      "Normalized stories returned by each source adapter",
		}, []string{"source"}),
		DedupDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_dropped_total",
			Help:      "Stories removed by the deduplicator, by reason",
		}, []string{"reason"}),
		StoriesSelected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stories_selected",
			Help:      "Stories in the most recent ranked result",
		}),
		CacheFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fallbacks_total",
			Help:      "Refreshes that returned the cached snapshot because nothing was fetched",
		}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of one full pipeline refresh",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		LastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last completed refresh",
		}),
		gatherer: reg,
	}
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(source string, n int) {
	m.StoriesFetched.WithLabelValues(source).Add(float64(n))
}

// ObserveDedup 按原因累计被去重丢弃的条数
func (m *Metrics) ObserveDedup(exactTitle, exactURL, fuzzy, topicCap int) {
	m.DedupDropped.WithLabelValues("exact_title").Add(float64(exactTitle))
	m.DedupDropped.WithLabelValues("exact_url").Add(float64(exactURL))
	m.DedupDropped.WithLabelValues("fuzzy").Add(float64(fuzzy))
	m.DedupDropped.WithLabelValues("topic_cap").Add(float64(topicCap))
}

func (m *Metrics) ObserveRefresh(start time.Time, selected int, fallback bool) {
	m.RefreshDuration.Observe(time.Since(start).Seconds())
	m.StoriesSelected.Set(float64(selected))
	m.LastRefresh.SetToCurrentTime()
	if fallback {
		m.CacheFallbacks.Inc()
	}
}
