package engine

import (
	"time"

	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/rules"
)

// Params 记录生成快照时使用的参数。
type Params struct {
	MinSupport   float64 `json:"min_support"`
	Metric       string  `json:"metric,omitempty"`
	MinThreshold float64 `json:"min_threshold,omitempty"`
}

// Stats 是快照的汇总统计。
type Stats struct {
	TotalItemsets     int         `json:"total_itemsets"`
	ItemsetsByLength  map[int]int `json:"itemsets_by_length"`
	TotalRules        int         `json:"total_rules"`
	AvgConfidence     float64     `json:"avg_confidence"`
	AvgLift           float64     `json:"avg_lift"`
	MaxSupport        float64     `json:"max_support"`
	MinSupportUsed    float64     `json:"min_support_used"`
	MinConfidenceUsed float64     `json:"min_confidence_used"`
}

// Snapshot 是一次挖掘的完整产出：频繁项集、规则集以及解释它们所需的商品字典。
// 安装后只读，任意数量的读者可并发访问；新一轮挖掘整体替换而不是修补。
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Interner  *mining.Interner
	Itemsets  []mining.Itemset
	Rules     *rules.RuleSet
	Total     int
	Params    Params
	Stats     Stats
}

// computeStats 按当前项集与规则计算统计。
func computeStats(itemsets []mining.Itemset, rs *rules.RuleSet, p Params) Stats {
	st := Stats{
		TotalItemsets:    len(itemsets),
		ItemsetsByLength: make(map[int]int),
		TotalRules:       rs.Len(),
		MinSupportUsed:   p.MinSupport,
	}
	for i := 1; i <= mining.MaxLength(itemsets); i++ {
		st.ItemsetsByLength[i] = 0
	}
	for _, s := range itemsets {
		st.ItemsetsByLength[s.Len()]++
		if s.Support > st.MaxSupport {
			st.MaxSupport = s.Support
		}
	}
	st.AvgConfidence, st.AvgLift = rs.Averages()
	if rules.Metric(p.Metric) == rules.MetricConfidence {
		st.MinConfidenceUsed = p.MinThreshold
	}
	return st
}

// TopItemsets 返回长度 >= minLength 的前 n 个项集（按支持度降序）。
func (s *Snapshot) TopItemsets(n, minLength int) []ItemsetView {
	if s == nil {
		return nil
	}
	return s.itemsetViews(mining.Top(s.Itemsets, n, minLength))
}

// ItemsetsByLength 返回长度为 k 的项集。
func (s *Snapshot) ItemsetsByLength(k int) []ItemsetView {
	if s == nil {
		return nil
	}
	return s.itemsetViews(mining.ByLength(s.Itemsets, k))
}

// TopRules 返回 lift >= minLift 的前 n 条规则；n <= 0 表示不截断。
func (s *Snapshot) TopRules(n int, minLift float64) []RuleView {
	if s == nil {
		return nil
	}
	return s.ruleViews(s.Rules.Top(n, minLift))
}

// RulesForItem 返回任意一侧包含该商品的规则，未知商品返回空。
func (s *Snapshot) RulesForItem(name string) []RuleView {
	if s == nil {
		return nil
	}
	id, ok := s.Interner.Lookup(name)
	if !ok {
		return nil
	}
	return s.ruleViews(s.Rules.ContainingItem(id))
}
