package recall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/rules"
)

// Recommendation 是一条购物篮推荐：商品、最佳解释规则的指标以及该规则的前件。
type Recommendation struct {
	Item       mining.Item
	Confidence float64
	Lift       float64
	Support    float64
	BasedOn    []mining.Item
}

// Together 是“经常一起购买”的一条结果。
type Together struct {
	Item       mining.Item
	Confidence float64
	Lift       float64
	Support    float64
}

// Similar 是共现相似度的一条结果，Score 为累计 lift。
type Similar struct {
	Item    mining.Item
	Score   float64
	Support float64
}

// Explanation 解释某个商品为何基于 BasedOn 被推荐。
type Explanation struct {
	Item       mining.Item
	BasedOn    []mining.Item
	Confidence float64
	Lift       float64
	Support    float64
}

// Sentence 用商品名称生成一句可读的解释。
func (e Explanation) Sentence(in *mining.Interner) string {
	return fmt.Sprintf("Customers who bought %s also bought %s in %.1f%% of cases. This association is %.2fx stronger than chance.",
		strings.Join(in.Names(e.BasedOn), ", "), in.Name(e.Item), e.Confidence*100, e.Lift)
}

func basketSet(basket []mining.Item) map[mining.Item]struct{} {
	set := make(map[mining.Item]struct{}, len(basket))
	for _, it := range basket {
		set[it] = struct{}{}
	}
	return set
}

// Recommend 返回前件被 basket 覆盖的规则推导出的候选商品。
//
// 同一商品被多条规则推荐时保留 confidence 最高的一条（相同时取 lift 更高者），
// 丢弃 confidence < minConfidence 的候选，按 confidence、lift 降序排列后截取 topN。
// topN <= 0 表示不截断。没有可用规则时返回空结果。
func Recommend(basket []mining.Item, rs []rules.Rule, topN int, minConfidence float64) []Recommendation {
	if len(rs) == 0 || len(basket) == 0 {
		return nil
	}
	in := basketSet(basket)

	best := make(map[mining.Item]int)
	var out []Recommendation
	for _, r := range rs {
		if !r.AntecedentWithin(in) {
			continue
		}
		for _, it := range r.Consequent {
			if _, ok := in[it]; ok {
				continue
			}
			rec := Recommendation{
				Item:       it,
				Confidence: r.Confidence,
				Lift:       r.Lift,
				Support:    r.Support,
				BasedOn:    r.Antecedent,
			}
			i, seen := best[it]
			if !seen {
				best[it] = len(out)
				out = append(out, rec)
				continue
			}
			old := out[i]
			if rec.Confidence > old.Confidence || (rec.Confidence == old.Confidence && rec.Lift > old.Lift) {
				out[i] = rec
			}
		}
	}

	kept := out[:0]
	for _, rec := range out {
		if rec.Confidence >= minConfidence {
			kept = append(kept, rec)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		return a.Item < b.Item
	})
	return truncate(kept, topN)
}

// FrequentlyBoughtTogether 返回与 item 同时出现在规则中的商品。
//
// item 在前件时取后件商品（同一商品更新为更高的 confidence / lift，support 保留首次记录）；
// item 在后件时取前件商品（仅在尚未出现时加入）。按 confidence 降序排列。
func FrequentlyBoughtTogether(item mining.Item, rs []rules.Rule, topN int) []Together {
	idx := make(map[mining.Item]int)
	var out []Together
	add := func(it mining.Item, r rules.Rule, replace bool) {
		t := Together{Item: it, Confidence: r.Confidence, Lift: r.Lift, Support: r.Support}
		i, seen := idx[it]
		if !seen {
			idx[it] = len(out)
			out = append(out, t)
			return
		}
		if replace && t.Confidence > out[i].Confidence {
			out[i].Confidence = t.Confidence
			out[i].Lift = t.Lift
		}
	}

	for _, r := range rs {
		if r.InAntecedent(item) {
			for _, it := range r.Consequent {
				add(it, r, true)
			}
		}
		if r.InConsequent(item) {
			for _, it := range r.Antecedent {
				add(it, r, false)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		return a.Item < b.Item
	})
	return truncate(out, topN)
}

// RecommendBySimilarity 按共现强度推荐：任何触及 basket 的规则把自己的 lift
// 累加到规则中其余每个商品上，按累计分数降序排列。
func RecommendBySimilarity(basket []mining.Item, rs []rules.Rule, topN int) []Similar {
	if len(rs) == 0 || len(basket) == 0 {
		return nil
	}
	in := basketSet(basket)

	idx := make(map[mining.Item]int)
	var out []Similar
	visit := func(r rules.Rule, it mining.Item) {
		if _, ok := in[it]; ok {
			return
		}
		if i, seen := idx[it]; seen {
			out[i].Score += r.Lift
			return
		}
		idx[it] = len(out)
		out = append(out, Similar{Item: it, Score: r.Lift, Support: r.Support})
	}

	for _, r := range rs {
		touched := false
		for _, it := range basket {
			if r.Touches(it) {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		for _, it := range r.Antecedent {
			visit(r, it)
		}
		for _, it := range r.Consequent {
			visit(r, it)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Item < out[j].Item
	})
	return truncate(out, topN)
}

// Explain 按规则顺序查找前件恰好等于 basedOn 且后件包含 item 的第一条规则。
func Explain(item mining.Item, basedOn []mining.Item, rs []rules.Rule) (Explanation, bool) {
	want := append([]mining.Item(nil), basedOn...)
	mining.SortItems(want)
	for _, r := range rs {
		if !sameItems(r.Antecedent, want) || !r.InConsequent(item) {
			continue
		}
		return Explanation{
			Item:       item,
			BasedOn:    r.Antecedent,
			Confidence: r.Confidence,
			Lift:       r.Lift,
			Support:    r.Support,
		}, true
	}
	return Explanation{}, false
}

func sameItems(a, b []mining.Item) bool {
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

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
