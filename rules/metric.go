package rules

import (
	"math"
	"strings"

	"github.com/rushteam/assockit/core"
)

// Metric 是规则过滤所用的度量。
type Metric string

const (
	MetricConfidence Metric = "confidence"
	MetricLift       Metric = "lift"
	MetricLeverage   Metric = "leverage"
	MetricConviction Metric = "conviction"
)

// Metrics 返回所有支持的度量。
func Metrics() []Metric {
	return []Metric{MetricConfidence, MetricLift, MetricLeverage, MetricConviction}
}

// ParseMetric 解析度量名称（大小写不敏感），不支持时返回 INVALID_METRIC。
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	switch m {
	case MetricConfidence, MetricLift, MetricLeverage, MetricConviction:
		return m, nil
	}
	return "", core.InvalidMetricError(core.ModuleRules, "unsupported metric", "metric", name)
}

// ValidateThreshold 检查阈值是否在度量的取值范围内：
// 所有度量都要求非负，confidence 额外要求 <= 1。
func (m Metric) ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 {
		return core.InvalidMetricError(core.ModuleRules, "threshold must be non-negative", "min_threshold", threshold)
	}
	if m == MetricConfidence && threshold > 1 {
		return core.InvalidMetricError(core.ModuleRules, "confidence threshold must be <= 1", "min_threshold", threshold)
	}
	return nil
}

// Value 返回规则在该度量下的取值。
func (m Metric) Value(r Rule) float64 {
	switch m {
	case MetricLift:
		return r.Lift
	case MetricLeverage:
		return r.Leverage
	case MetricConviction:
		return r.Conviction
	default:
		return r.Confidence
	}
}

// Scores 是由支持度推导出的规则度量。
type Scores struct {
	Support    float64
	Confidence float64
	Lift       float64
	Leverage   float64
	Conviction float64
}

// ComputeScores 由 A∪C、A、C 的支持计数与交易总数计算度量。
// confidence = 1 时 conviction 为 +Inf。
func ComputeScores(countAC, countA, countC, total int) Scores {
	n := float64(total)
	pAC := float64(countAC) / n
	pA := float64(countA) / n
	pC := float64(countC) / n

	conf := float64(countAC) / float64(countA)
	s := Scores{
		Support:    pAC,
		Confidence: conf,
		Lift:       conf / pC,
		Leverage:   pAC - pA*pC,
	}
	if conf >= 1 {
		s.Conviction = math.Inf(1)
	} else {
		s.Conviction = (1 - pC) / (1 - conf)
	}
	return s
}
