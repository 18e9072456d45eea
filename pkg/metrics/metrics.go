// Package metrics 定义挖掘与推荐的 Prometheus 指标。
//
// 指标注册到默认 Registry；暴露 /metrics 由调用方负责。
//
//   - assockit_mining_runs_total{status}: 挖掘运行次数（ok / error）
//   - assockit_mining_stage_duration_seconds{stage}: 各阶段耗时（mine / rules / persist / restore）
//   - assockit_snapshot_itemsets / assockit_snapshot_rules: 当前快照规模
//   - assockit_recommend_requests_total{kind}: 推荐请求（recommend / together / similarity / explain）
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MiningRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assockit_mining_runs_total",
			Help: "Total number of mining runs by outcome",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assockit_mining_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"stage"},
	)

	SnapshotItemsets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assockit_snapshot_itemsets",
			Help: "Number of frequent itemsets in the installed snapshot",
		},
	)

	SnapshotRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assockit_snapshot_rules",
			Help: "Number of association rules in the installed snapshot",
		},
	)

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assockit_recommend_requests_total",
			Help: "Total number of recommendation queries by kind",
		},
		[]string{"kind"},
	)
)

// 运行结果
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ObserveStage 记录阶段耗时，用法：defer metrics.ObserveStage("mine", time.Now())
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordRun 记录一次挖掘运行的结果。
func RecordRun(err error) {
	if err != nil {
		MiningRuns.WithLabelValues(StatusError).Inc()
		return
	}
	MiningRuns.WithLabelValues(StatusOK).Inc()
}

// RecordSnapshot 更新当前快照规模。
func RecordSnapshot(itemsets, rules int) {
	SnapshotItemsets.Set(float64(itemsets))
	SnapshotRules.Set(float64(rules))
}

// RecordRequest 记录一次推荐查询。
func RecordRequest(kind string) {
	RecommendRequests.WithLabelValues(kind).Inc()
}
