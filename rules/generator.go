package rules

import (
	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/mining"
)

// maxItemsetLen 限制单个项集的长度，2^k 的前件枚举依赖 64 位掩码。
const maxItemsetLen = 62

// Generate 对每个长度 >= 2 的频繁项集枚举所有非空真子集作为前件，
// 计算 confidence / lift / leverage / conviction，保留 metric 取值 >= minThreshold 的规则。
//
// 错误：
//   - PRECONDITION：itemsets 为空（需先挖掘），total <= 0，或某个子集的支持度缺失
//   - INVALID_METRIC：度量不支持，或阈值越界
func Generate(itemsets []mining.Itemset, total int, metric Metric, minThreshold float64) (*RuleSet, error) {
	metric, err := ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}
	if err := metric.ValidateThreshold(minThreshold); err != nil {
		return nil, err
	}
	if len(itemsets) == 0 {
		return nil, core.PreconditionError(core.ModuleRules, "frequent itemsets must be mined first", "itemsets", 0)
	}
	if total <= 0 {
		return nil, core.PreconditionError(core.ModuleRules, "total transactions must be positive", "total", total)
	}

	counts := make(map[string]int, len(itemsets))
	for _, s := range itemsets {
		counts[s.Key()] = s.Count
	}

	var out []Rule
	for _, s := range itemsets {
		k := len(s.Items)
		if k < 2 {
			continue
		}
		if k > maxItemsetLen {
			return nil, core.PreconditionError(core.ModuleRules, "itemset too long for rule enumeration", "length", k)
		}

		full := uint64(1)<<uint(k) - 1
		for mask := uint64(1); mask < full; mask++ {
			ante, cons := split(s.Items, mask)
			countA, okA := counts[mining.Key(ante)]
			countC, okC := counts[mining.Key(cons)]
			if !okA || !okC {
				return nil, core.PreconditionError(core.ModuleRules, "itemsets are not downward closed", "itemset", s.Key())
			}

			sc := ComputeScores(s.Count, countA, countC, total)
			r := Rule{
				Antecedent:        ante,
				Consequent:        cons,
				AntecedentSupport: float64(countA) / float64(total),
				ConsequentSupport: float64(countC) / float64(total),
				Support:           sc.Support,
				Confidence:        sc.Confidence,
				Lift:              sc.Lift,
				Leverage:          sc.Leverage,
				Conviction:        sc.Conviction,
			}
			if metric.Value(r) >= minThreshold {
				out = append(out, r)
			}
		}
	}

	return RestoreRuleSet(out, metric, minThreshold), nil
}

// split 按掩码把已排序的项集拆成前件（置位）与后件（未置位），两侧保持升序。
func split(items []mining.Item, mask uint64) (ante, cons []mining.Item) {
	for i, it := range items {
		if mask&(1<<uint(i)) != 0 {
			ante = append(ante, it)
		} else {
			cons = append(cons, it)
		}
	}
	return ante, cons
}
