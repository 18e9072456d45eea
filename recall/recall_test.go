package recall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/rules"
)

// exampleRules 基于 {A,B} {A,B,C} {A} {B,C}，min_support = 0.5，min_confidence = 0.5。
// 规则顺序：C→B(1.0) B→C(0.667, lift 1.333) A→B(0.667) B→A(0.667)
func exampleRules(t *testing.T) *StaticRules {
	t.Helper()
	baskets := [][]string{{"A", "B"}, {"A", "B", "C"}, {"A"}, {"B", "C"}}
	res, err := mining.FindFrequentItemsets(mining.MatrixFromBaskets(nil, baskets), 0.5)
	require.NoError(t, err)
	rs, err := rules.Generate(res.Itemsets, res.Total, rules.MetricConfidence, 0.5)
	require.NoError(t, err)
	require.Equal(t, 4, rs.Len())
	return &StaticRules{Interner: res.Interner, Rules: rs}
}

func names(in *mining.Interner, items []mining.Item) []string { return in.Names(items) }

func TestRecommend(t *testing.T) {
	p := exampleRules(t)
	in, rs := p.RuleSet()

	tests := []struct {
		name    string
		basket  []string
		topN    int
		minConf float64
		want    []string
	}{
		{name: "example", basket: []string{"A"}, topN: 5, minConf: 0.5, want: []string{"B"}},
		{name: "confidence then lift", basket: []string{"B"}, topN: 5, minConf: 0.5, want: []string{"C", "A"}},
		{name: "top n", basket: []string{"B"}, topN: 1, minConf: 0.5, want: []string{"C"}},
		{name: "no cap", basket: []string{"B"}, topN: 0, minConf: 0.5, want: []string{"C", "A"}},
		{name: "min confidence", basket: []string{"B"}, topN: 5, minConf: 0.7, want: nil},
		{name: "basket items excluded", basket: []string{"A", "B"}, topN: 5, minConf: 0.5, want: []string{"C"}},
		{name: "unknown item", basket: []string{"Z"}, topN: 5, minConf: 0.5, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			basket := in.Resolve(tt.basket)
			recs := Recommend(basket, rs.Rules(), tt.topN, tt.minConf)
			got := make([]string, 0, len(recs))
			for _, rec := range recs {
				got = append(got, in.Name(rec.Item))
				for _, b := range rec.BasedOn {
					assert.Contains(t, basket, b, "based_on must be inside the basket")
				}
			}
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecommend_ExampleMetrics(t *testing.T) {
	p := exampleRules(t)
	in, rs := p.RuleSet()

	recs := Recommend(in.Resolve([]string{"A"}), rs.Rules(), 5, 0.5)
	require.Len(t, recs, 1)
	assert.InDelta(t, 2.0/3.0, recs[0].Confidence, 1e-9)
	assert.InDelta(t, (2.0/3.0)/0.75, recs[0].Lift, 1e-9)
	assert.InDelta(t, 0.5, recs[0].Support, 1e-9)
	assert.Equal(t, []string{"A"}, names(in, recs[0].BasedOn))
}

func TestRecommend_BestExplanationWins(t *testing.T) {
	a, b, c := mining.Item(0), mining.Item(1), mining.Item(2)
	rs := []rules.Rule{
		{Antecedent: []mining.Item{a}, Consequent: []mining.Item{c}, Confidence: 0.6, Lift: 2.0},
		{Antecedent: []mining.Item{a, b}, Consequent: []mining.Item{c}, Confidence: 0.9, Lift: 1.1},
		{Antecedent: []mining.Item{b}, Consequent: []mining.Item{c}, Confidence: 0.9, Lift: 1.5},
	}
	recs := Recommend([]mining.Item{a, b}, rs, 5, 0)
	require.Len(t, recs, 1)
	assert.Equal(t, 0.9, recs[0].Confidence)
	assert.Equal(t, 1.5, recs[0].Lift)
	assert.Equal(t, []mining.Item{b}, recs[0].BasedOn)
}

func TestRecommend_Empty(t *testing.T) {
	assert.Empty(t, Recommend([]mining.Item{0}, nil, 5, 0))
	assert.Empty(t, Recommend(nil, []rules.Rule{{Antecedent: []mining.Item{0}, Consequent: []mining.Item{1}}}, 5, 0))
}

func TestFrequentlyBoughtTogether(t *testing.T) {
	p := exampleRules(t)
	in, rs := p.RuleSet()

	b, _ := in.Lookup("B")
	got := FrequentlyBoughtTogether(b, rs.Rules(), 5)
	require.Len(t, got, 2)
	assert.Equal(t, "C", in.Name(got[0].Item))
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)
	assert.Equal(t, "A", in.Name(got[1].Item))
	assert.InDelta(t, 2.0/3.0, got[1].Confidence, 1e-9)

	assert.Len(t, FrequentlyBoughtTogether(b, rs.Rules(), 1), 1)
	assert.Empty(t, FrequentlyBoughtTogether(b, nil, 5))
}

func TestFrequentlyBoughtTogether_AntecedentDirectionKeepsBest(t *testing.T) {
	a, b := mining.Item(0), mining.Item(1)
	rs := []rules.Rule{
		{Antecedent: []mining.Item{b}, Consequent: []mining.Item{a}, Confidence: 0.4, Lift: 1.0, Support: 0.3},
		{Antecedent: []mining.Item{a}, Consequent: []mining.Item{b}, Confidence: 0.8, Lift: 1.2, Support: 0.2},
	}
	got := FrequentlyBoughtTogether(a, rs, 0)
	require.Len(t, got, 1)
	assert.Equal(t, 0.8, got[0].Confidence)
	assert.Equal(t, 1.2, got[0].Lift)
	assert.Equal(t, 0.3, got[0].Support, "support stays with the first record")

	// 后件方向只在缺失时插入
	rs[0], rs[1] = rs[1], rs[0]
	got = FrequentlyBoughtTogether(b, rs, 0)
	require.Len(t, got, 1)
	assert.Equal(t, 0.8, got[0].Confidence)
}

func TestRecommendBySimilarity(t *testing.T) {
	p := exampleRules(t)
	in, rs := p.RuleSet()

	got := RecommendBySimilarity(in.Resolve([]string{"A"}), rs.Rules(), 5)
	require.Len(t, got, 1)
	assert.Equal(t, "B", in.Name(got[0].Item))
	assert.InDelta(t, 2*(2.0/3.0)/0.75, got[0].Score, 1e-9)

	got = RecommendBySimilarity(in.Resolve([]string{"C"}), rs.Rules(), 5)
	require.Len(t, got, 1)
	assert.InDelta(t, 2*(1.0/0.75), got[0].Score, 1e-9)

	got = RecommendBySimilarity(in.Resolve([]string{"B"}), rs.Rules(), 0)
	require.Len(t, got, 2)
	assert.Equal(t, "C", in.Name(got[0].Item))
	assert.Equal(t, "A", in.Name(got[1].Item))
}

func TestExplain(t *testing.T) {
	p := exampleRules(t)
	in, rs := p.RuleSet()

	b, _ := in.Lookup("B")
	a, _ := in.Lookup("A")
	e, ok := Explain(b, in.Resolve([]string{"C"}), rs.Rules())
	require.True(t, ok)
	assert.InDelta(t, 1.0, e.Confidence, 1e-9)
	assert.Equal(t, "Customers who bought C also bought B in 100.0% of cases. This association is 1.33x stronger than chance.", e.Sentence(in))

	_, ok = Explain(a, in.Resolve([]string{"C"}), rs.Rules())
	assert.False(t, ok)
	_, ok = Explain(b, in.Resolve([]string{"A", "C"}), rs.Rules())
	assert.False(t, ok)
}

func TestAssociationRecall(t *testing.T) {
	p := exampleRules(t)
	r := &AssociationRecall{Provider: p, TopN: 5, MinConfidence: 0.5}

	items, err := r.Process(context.Background(), &core.RecommendContext{Basket: []string{"B"}}, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].ID)
	assert.InDelta(t, 2.0/3.0, items[0].Score, 1e-9)
	assert.InDelta(t, 4.0/3.0, items[0].Feature(core.FeatureLift), 1e-9)
	assert.Equal(t, []string{"B"}, items[0].Labels["based_on"].Items())

	items, err = r.Recall(context.Background(), &core.RecommendContext{
		Basket: []string{"B"},
		Params: map[string]any{"top_n": 1},
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	empty := &AssociationRecall{Provider: &StaticRules{}}
	items, err = empty.Recall(context.Background(), &core.RecommendContext{Basket: []string{"B"}})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTogetherAndSimilarityRecall(t *testing.T) {
	p := exampleRules(t)
	ctx := context.Background()

	together := &TogetherRecall{Provider: p, TopN: 5}
	items, err := together.Recall(ctx, &core.RecommendContext{Basket: []string{"B"}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].ID)
	assert.Equal(t, "B", items[0].Labels["based_on"].Value)

	items, err = (&TogetherRecall{Provider: p, Anchor: "missing"}).Recall(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	similar := &SimilarityRecall{Provider: p, TopN: 5}
	items, err = similar.Process(ctx, &core.RecommendContext{Basket: []string{"A"}}, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].ID)
}

type staticSource struct {
	name  string
	ids   []string
	delay time.Duration
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, core.NewItem(id))
	}
	return out, nil
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFanout(t *testing.T) {
	sources := func() []Source {
		return []Source{
			&staticSource{name: "s1", ids: []string{"a", "b"}},
			&staticSource{name: "s2", ids: []string{"b", "c"}},
			&staticSource{name: "broken", err: errors.New("boom")},
			&staticSource{name: "slow", ids: []string{"z"}, delay: time.Second},
		}
	}

	tests := []struct {
		name     string
		strategy string
		dedup    bool
		want     []string
	}{
		{name: "first", strategy: MergeFirst, dedup: true, want: []string{"a", "b", "c"}},
		{name: "default", strategy: "", dedup: true, want: []string{"a", "b", "c"}},
		{name: "priority", strategy: MergePriority, dedup: true, want: []string{"a", "b", "c"}},
		{name: "union", strategy: MergeUnion, dedup: true, want: []string{"a", "b", "b", "c"}},
		{name: "no dedup", strategy: MergeFirst, dedup: false, want: []string{"a", "b", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Fanout{
				Sources:       sources(),
				Dedup:         tt.dedup,
				Timeout:       20 * time.Millisecond,
				MaxConcurrent: 2,
				MergeStrategy: tt.strategy,
			}
			items, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(items))
		})
	}
}

func TestFanout_Labels(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&staticSource{name: "s1", ids: []string{"a"}},
			&staticSource{name: "s2", ids: []string{"a"}},
		},
		Dedup: true,
	}
	items, err := n.Process(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s1|s2", items[0].Labels["recall_source"].Value)

	n.MergeStrategy = MergePriority
	items, err = n.Process(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s1", items[0].Labels["recall_source"].Value)
	assert.Equal(t, "0", items[0].Labels["recall_priority"].Value)
}
