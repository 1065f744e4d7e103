// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントと一覧キャッシュから利用する。
type MetricsCollector interface {
	// RecordUpstreamCall はAPI呼び出し結果を記録する。通信失敗時のstatusCodeは0。
	RecordUpstreamCall(operation string, statusCode int, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordStaleDiscard()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	staleDiscards   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeoff_upstream_requests_total",
			Help: "API呼び出しの合計数（操作・ステータス別）",
		}, []string{"operation", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timeoff_upstream_latency_seconds",
			Help:    "API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeoff_listing_cache_hits_total",
			Help: "一覧キャッシュのヒット数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeoff_listing_cache_misses_total",
			Help: "一覧キャッシュのミス数",
		}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeoff_listing_stale_discards_total",
			Help: "新しいリクエストに追い越されて破棄された一覧レスポンス数",
		}),
	}

	reg.MustRegister(
		c.upstreamCalls,
		c.upstreamLatency,
		c.cacheHits,
		c.cacheMisses,
		c.staleDiscards,
	)

	return c
}

// RecordUpstreamCall はAPI呼び出しの件数とレイテンシを記録する。
func (c *Collector) RecordUpstreamCall(operation string, statusCode int, duration time.Duration) {
	c.upstreamCalls.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordStaleDiscard は古い世代のレスポンス破棄を記録する。
func (c *Collector) RecordStaleDiscard() {
	c.staleDiscards.Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordUpstreamCall(string, int, time.Duration) {}
func (Nop) RecordCacheHit()                               {}
func (Nop) RecordCacheMiss()                              {}
func (Nop) RecordStaleDiscard()                           {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
