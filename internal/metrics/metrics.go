// Package metrics はPrometheus形式のメトリクスを提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は取り込みパイプラインの計測値を保持する。
type Metrics struct {
	registry *prometheus.Registry

	ingestRuns       prometheus.Counter
	articlesFetched  prometheus.Counter
	articlesInserted prometheus.Counter
	duplicatesTotal  prometheus.Counter
	batchFailures    prometheus.Counter
	ingestDuration   prometheus.Histogram
}

// New はメトリクスを登録済みのMetricsを生成する。
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ingestRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technews_ingest_runs_total",
			Help: "取り込み実行の累計回数",
		}),
		articlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technews_articles_fetched_total",
			Help: "アダプタが取得した記事の累計数",
		}),
		articlesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technews_articles_inserted_total",
			Help: "挿入に成功した記事の累計数",
		}),
		duplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technews_articles_duplicates_total",
			Help: "重複により除外された記事の累計数",
		}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technews_ingest_batch_failures_total",
			Help: "挿入に失敗したバッチの累計数",
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "technews_ingest_duration_seconds",
			Help:    "取り込み実行1回あたりの所要時間",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	registry.MustRegister(
		m.ingestRuns,
		m.articlesFetched,
		m.articlesInserted,
		m.duplicatesTotal,
		m.batchFailures,
		m.ingestDuration,
	)

	return m
}

// RecordIngestRun は取り込み実行1回分の計測値を記録する。
func (m *Metrics) RecordIngestRun(fetched, inserted, duplicates int, duration time.Duration) {
	m.ingestRuns.Inc()
	m.articlesFetched.Add(float64(fetched))
	m.articlesInserted.Add(float64(inserted))
	m.duplicatesTotal.Add(float64(duplicates))
	m.ingestDuration.Observe(duration.Seconds())
}

// RecordBatchFailure はバッチ挿入の失敗を記録する。
func (m *Metrics) RecordBatchFailure() {
	m.batchFailures.Inc()
}

// Handler は/metricsエンドポイント用のHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
