package rules

import (
	"math"

	"github.com/rushteam/assockit/mining"
)

// Rule 是关联规则 A → C。Antecedent 与 Consequent 非空、不相交、均按标识升序，
// 二者之并即生成规则的频繁项集。
type Rule struct {
	Antecedent []mining.Item
	Consequent []mining.Item

	// AntecedentSupport / ConsequentSupport 是两侧各自的支持度比例
	AntecedentSupport float64
	ConsequentSupport float64
	Support           float64
	Confidence        float64
	Lift              float64
	Leverage          float64
	Conviction        float64 // confidence = 1 时为 +Inf
}

// ItemsetKey 返回生成该规则的项集 key。
func (r Rule) ItemsetKey() string {
	all := make([]mining.Item, 0, len(r.Antecedent)+len(r.Consequent))
	all = append(all, r.Antecedent...)
	all = append(all, r.Consequent...)
	mining.SortItems(all)
	return mining.Key(all)
}

// InAntecedent 判断商品是否出现在前件中。
func (r Rule) InAntecedent(it mining.Item) bool { return contains(r.Antecedent, it) }

// InConsequent 判断商品是否出现在后件中。
func (r Rule) InConsequent(it mining.Item) bool { return contains(r.Consequent, it) }

// Touches 判断商品是否出现在规则任意一侧。
func (r Rule) Touches(it mining.Item) bool { return r.InAntecedent(it) || r.InConsequent(it) }

// AntecedentWithin 判断前件是否为 basket 的子集。
func (r Rule) AntecedentWithin(basket map[mining.Item]struct{}) bool {
	for _, it := range r.Antecedent {
		if _, ok := basket[it]; !ok {
			return false
		}
	}
	return true
}

// UnboundedConviction 表示 conviction 为 +Inf（置信度为 1）。
func (r Rule) UnboundedConviction() bool { return math.IsInf(r.Conviction, 1) }

func contains(items []mining.Item, it mining.Item) bool {
	for _, x := range items {
		if x == it {
			return true
		}
	}
	return false
}
