package rules

import (
	"sort"

	"github.com/rushteam/assockit/mining"
)

// RuleSet 是一次规则生成的完整结果，构建后只读，可并发访问。
//
// 逻辑上它既是“项集 → 可推导规则”的映射（ForItemset），也是按
// confidence 降序、lift 降序排列的序列（Rules）。
type RuleSet struct {
	rules     []Rule
	byItemset map[string][]int
	metric    Metric
	threshold float64
}

// NewRuleSet 排序并建立项集索引。
func NewRuleSet(rules []Rule) *RuleSet {
	SortRules(rules)
	rs := &RuleSet{
		rules:     rules,
		byItemset: make(map[string][]int),
		metric:    MetricConfidence,
	}
	for i, r := range rules {
		key := r.ItemsetKey()
		rs.byItemset[key] = append(rs.byItemset[key], i)
	}
	return rs
}

// RestoreRuleSet 用已计算好的规则重建 RuleSet，并记录生成时的度量与阈值。
func RestoreRuleSet(rules []Rule, metric Metric, threshold float64) *RuleSet {
	rs := NewRuleSet(rules)
	if metric != "" {
		rs.metric = metric
	}
	rs.threshold = threshold
	return rs
}

// SortRules 按 confidence 降序、lift 降序排序，再按前件、后件标识字典序得到全序。
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if !equalItems(a.Antecedent, b.Antecedent) {
			return mining.LessItems(a.Antecedent, b.Antecedent)
		}
		return mining.LessItems(a.Consequent, b.Consequent)
	})
}

// Rules 返回排好序的规则。调用方不得修改返回的切片。
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Len 返回规则数。
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Metric 返回生成时使用的过滤度量。
func (rs *RuleSet) Metric() Metric {
	if rs == nil {
		return MetricConfidence
	}
	return rs.metric
}

// Threshold 返回生成时使用的阈值。
func (rs *RuleSet) Threshold() float64 {
	if rs == nil {
		return 0
	}
	return rs.threshold
}

// ForItemset 返回由 key 对应项集推导出的规则。
func (rs *RuleSet) ForItemset(key string) []Rule {
	if rs == nil {
		return nil
	}
	idx := rs.byItemset[key]
	out := make([]Rule, len(idx))
	for i, j := range idx {
		out[i] = rs.rules[j]
	}
	return out
}

// Top 返回 lift >= minLift 的前 n 条规则；n <= 0 表示不截断。
func (rs *RuleSet) Top(n int, minLift float64) []Rule {
	return rs.Filter(n, func(r Rule) bool { return r.Lift >= minLift })
}

// ContainingItem 返回前件或后件包含该商品的规则。
func (rs *RuleSet) ContainingItem(it mining.Item) []Rule {
	return rs.Filter(0, func(r Rule) bool { return r.Touches(it) })
}

// Filter 按顺序返回满足 keep 的前 n 条规则；n <= 0 表示不截断。
func (rs *RuleSet) Filter(n int, keep func(Rule) bool) []Rule {
	var out []Rule
	for _, r := range rs.Rules() {
		if !keep(r) {
			continue
		}
		out = append(out, r)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// Averages 返回平均 confidence 与平均 lift；没有规则时为 0。
func (rs *RuleSet) Averages() (confidence, lift float64) {
	if rs.Len() == 0 {
		return 0, 0
	}
	for _, r := range rs.rules {
		confidence += r.Confidence
		lift += r.Lift
	}
	n := float64(len(rs.rules))
	return confidence / n, lift / n
}

func equalItems(a, b []mining.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
