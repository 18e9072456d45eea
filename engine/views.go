package engine

import (
	"math"

	"github.com/goccy/go-json"

	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/recall"
	"github.com/rushteam/assockit/rules"
)

// ItemsetView 是以商品名称表示的频繁项集。
type ItemsetView struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
	Count   int      `json:"count"`
	Length  int      `json:"length"`
}

// RuleView 是以商品名称表示的关联规则。
type RuleView struct {
	Antecedents       []string `json:"antecedents"`
	Consequents       []string `json:"consequents"`
	AntecedentSupport float64  `json:"antecedent_support"`
	ConsequentSupport float64  `json:"consequent_support"`
	Support           float64  `json:"support"`
	Confidence        float64  `json:"confidence"`
	Lift              float64  `json:"lift"`
	Leverage          float64  `json:"leverage"`
	Conviction        float64  `json:"-"` // confidence = 1 时为 +Inf
}

// MarshalJSON 把无界的 conviction 编码为 null。
func (r RuleView) MarshalJSON() ([]byte, error) {
	type alias RuleView
	return json.Marshal(struct {
		alias
		Conviction *float64 `json:"conviction"`
	}{alias: alias(r), Conviction: finite(r.Conviction)})
}

// RecommendationView 是一条购物篮推荐。
type RecommendationView struct {
	Item       string   `json:"item"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
	Support    float64  `json:"support"`
	BasedOn    []string `json:"based_on"`
}

// TogetherView 是一条“经常一起购买”结果。
type TogetherView struct {
	Item       string  `json:"item"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
	Support    float64 `json:"support"`
}

// SimilarView 是一条共现相似度结果。
type SimilarView struct {
	Item    string  `json:"item"`
	Score   float64 `json:"score"`
	Support float64 `json:"support"`
}

// ExplanationView 解释一条推荐。
type ExplanationView struct {
	Item        string   `json:"item"`
	BasedOn     []string `json:"based_on"`
	Confidence  float64  `json:"confidence"`
	Lift        float64  `json:"lift"`
	Support     float64  `json:"support"`
	Explanation string   `json:"explanation"`
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (s *Snapshot) itemsetViews(sets []mining.Itemset) []ItemsetView {
	out := make([]ItemsetView, 0, len(sets))
	for _, set := range sets {
		out = append(out, ItemsetView{
			Items:   s.Interner.Names(set.Items),
			Support: set.Support,
			Count:   set.Count,
			Length:  set.Len(),
		})
	}
	return out
}

func (s *Snapshot) ruleView(r rules.Rule) RuleView {
	return RuleView{
		Antecedents:       s.Interner.Names(r.Antecedent),
		Consequents:       s.Interner.Names(r.Consequent),
		AntecedentSupport: r.AntecedentSupport,
		ConsequentSupport: r.ConsequentSupport,
		Support:           r.Support,
		Confidence:        r.Confidence,
		Lift:              r.Lift,
		Leverage:          r.Leverage,
		Conviction:        r.Conviction,
	}
}

func (s *Snapshot) ruleViews(rs []rules.Rule) []RuleView {
	out := make([]RuleView, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.ruleView(r))
	}
	return out
}

func (s *Snapshot) recommendationViews(recs []recall.Recommendation) []RecommendationView {
	out := make([]RecommendationView, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecommendationView{
			Item:       s.Interner.Name(r.Item),
			Confidence: r.Confidence,
			Lift:       r.Lift,
			Support:    r.Support,
			BasedOn:    s.Interner.Names(r.BasedOn),
		})
	}
	return out
}

func (s *Snapshot) togetherViews(found []recall.Together) []TogetherView {
	out := make([]TogetherView, 0, len(found))
	for _, t := range found {
		out = append(out, TogetherView{
			Item:       s.Interner.Name(t.Item),
			Confidence: t.Confidence,
			Lift:       t.Lift,
			Support:    t.Support,
		})
	}
	return out
}

func (s *Snapshot) similarViews(found []recall.Similar) []SimilarView {
	out := make([]SimilarView, 0, len(found))
	for _, sim := range found {
		out = append(out, SimilarView{
			Item:    s.Interner.Name(sim.Item),
			Score:   sim.Score,
			Support: sim.Support,
		})
	}
	return out
}
