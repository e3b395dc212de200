// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 決済検証の結果ラベル
const (
	ResultGranted  = "granted"
	ResultReplayed = "replayed"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層と外部APIクライアントから利用する。
type MetricsCollector interface {
	RecordOrderCreated(gateway string)
	RecordPaymentVerification(gateway string, result string)
	RecordIdeaGenerated(premium bool)
	RecordLimitBlocked()
	RecordUpstreamStatus(service string, statusCode int)
	RecordUpstreamLatency(service string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ordersCreated   *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	ideasGenerated  *prometheus.CounterVec
	limitBlocked    prometheus.Counter
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolpunk_orders_created_total",
			Help: "ゲートウェイ別の決済開始数",
		}, []string{"gateway"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolpunk_payment_verifications_total",
			Help: "ゲートウェイ・結果別の決済検証数",
		}, []string{"gateway", "result"}),
		ideasGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolpunk_ideas_generated_total",
			Help: "生成されたアイデアの合計数",
		}, []string{"tier"}),
		limitBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toolpunk_daily_limit_blocked_total",
			Help: "無料枠上限により拒否された生成リクエスト数",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolpunk_upstream_status_total",
			Help: "外部API別・ステータスコード別のレスポンス数",
		}, []string{"service", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolpunk_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
	}

	reg.MustRegister(
		c.ordersCreated,
		c.verifications,
		c.ideasGenerated,
		c.limitBlocked,
		c.upstreamStatus,
		c.upstreamLatency,
	)

	return c
}

// RecordOrderCreated は決済開始を記録する。
func (c *Collector) RecordOrderCreated(gateway string) {
	c.ordersCreated.WithLabelValues(gateway).Inc()
}

// RecordPaymentVerification は決済検証の結果を記録する。
func (c *Collector) RecordPaymentVerification(gateway string, result string) {
	c.verifications.WithLabelValues(gateway, result).Inc()
}

// RecordIdeaGenerated はアイデア生成を記録する。
func (c *Collector) RecordIdeaGenerated(premium bool) {
	tier := "free"
	if premium {
		tier = "premium"
	}
	c.ideasGenerated.WithLabelValues(tier).Inc()
}

// RecordLimitBlocked は無料枠上限による拒否を記録する。
func (c *Collector) RecordLimitBlocked() {
	c.limitBlocked.Inc()
}

// RecordUpstreamStatus は外部APIのステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(service string, statusCode int) {
	c.upstreamStatus.WithLabelValues(service, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(service string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type NopCollector struct{}

func (NopCollector) RecordOrderCreated(string) {}
func (NopCollector) RecordPaymentVerification(string, string) {}
func (NopCollector) RecordIdeaGenerated(bool) {}
func (NopCollector) RecordLimitBlocked() {}
func (NopCollector) RecordUpstreamStatus(string, int) {}
func (NopCollector) RecordUpstreamLatency(string, time.Duration) {}
