package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/pkg/logging"
	"github.com/rushteam/assockit/store"
)

var exampleBaskets = [][]string{{"A", "B"}, {"A", "B", "C"}, {"A"}, {"B", "C"}}

func exampleMatrix() mining.Matrix {
	return mining.MatrixFromBaskets(nil, exampleBaskets)
}

func exampleParams() Params {
	return Params{MinSupport: 0.5, Metric: "confidence", MinThreshold: 0.5}
}

func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithLogger(logging.Nop())}, opts...)...)
}

func itemNames(views []ItemsetView) [][]string {
	out := make([][]string, len(views))
	for i, v := range views {
		out[i] = v.Items
	}
	return out
}

func TestAnalyze_Example(t *testing.T) {
	e := newTestEngine()
	snap, err := e.Analyze(context.Background(), exampleMatrix(), exampleParams())
	require.NoError(t, err)
	require.Same(t, snap, e.Snapshot())
	assert.NotEmpty(t, snap.ID)

	assert.Equal(t, [][]string{{"A"}, {"B"}, {"C"}, {"A", "B"}, {"B", "C"}}, itemNames(e.TopItemsets(0, 1)))
	assert.Equal(t, [][]string{{"A", "B"}, {"B", "C"}}, itemNames(e.ItemsetsByLength(2)))
	assert.Len(t, e.TopItemsets(2, 1), 2)

	rs := e.TopRules(0, 0)
	require.Len(t, rs, 4)
	assert.Equal(t, []string{"C"}, rs[0].Antecedents)
	assert.Equal(t, []string{"B"}, rs[0].Consequents)
	assert.True(t, math.IsInf(rs[0].Conviction, 1))

	assert.Len(t, e.TopRules(0, 1.2), 2)
	assert.Len(t, e.RulesForItem("A"), 2)
	assert.Empty(t, e.RulesForItem("Z"))

	recs := e.Recommend([]string{"A"}, 5, 0.5)
	require.Len(t, recs, 1)
	assert.Equal(t, "B", recs[0].Item)
	assert.InDelta(t, 2.0/3.0, recs[0].Confidence, 1e-9)
	assert.Equal(t, []string{"A"}, recs[0].BasedOn)
}

func TestAnalyze_Stats(t *testing.T) {
	e := newTestEngine()
	snap, err := e.Analyze(context.Background(), exampleMatrix(), exampleParams())
	require.NoError(t, err)

	st := snap.Stats
	assert.Equal(t, 5, st.TotalItemsets)
	assert.Equal(t, map[int]int{1: 3, 2: 2}, st.ItemsetsByLength)
	assert.Equal(t, 4, st.TotalRules)
	assert.InDelta(t, 0.75, st.AvgConfidence, 1e-9)
	assert.InDelta(t, (2*(1.0/0.75)+2*((2.0/3.0)/0.75))/4, st.AvgLift, 1e-9)
	assert.InDelta(t, 0.75, st.MaxSupport, 1e-9)
	assert.Equal(t, 0.5, st.MinSupportUsed)
	assert.Equal(t, 0.5, st.MinConfidenceUsed)
}

func TestMineThenGenerate(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.GenerateRules(ctx, "confidence", 0.5)
	require.Error(t, err)
	assert.True(t, core.IsPrecondition(err))
	assert.True(t, IsNotMined(err))

	snap, err := e.MineItemsets(ctx, exampleMatrix(), 0.5)
	require.NoError(t, err)
	assert.Len(t, snap.Itemsets, 5)
	assert.Equal(t, 0, snap.Rules.Len())
	assert.Empty(t, e.Recommend([]string{"A"}, 5, 0))

	next, err := e.GenerateRules(ctx, "lift", 1.0)
	require.NoError(t, err)
	assert.NotEqual(t, snap.ID, next.ID)
	assert.Same(t, snap.Interner, next.Interner)
	assert.Equal(t, 2, next.Rules.Len())
	assert.Equal(t, "lift", next.Params.Metric)
	assert.Equal(t, 0.0, next.Stats.MinConfidenceUsed)
}

func TestFailedRunKeepsSnapshot(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	snap, err := e.Analyze(ctx, exampleMatrix(), exampleParams())
	require.NoError(t, err)

	_, err = e.Analyze(ctx, exampleMatrix(), Params{MinSupport: 1.0})
	assert.True(t, core.IsEmptyResult(err))
	assert.Same(t, snap, e.Snapshot())

	_, err = e.GenerateRules(ctx, "confidence", 1.5)
	assert.True(t, core.IsInvalidMetric(err))
	_, err = e.GenerateRules(ctx, "gini", 0.1)
	assert.True(t, core.IsInvalidMetric(err))
	assert.Same(t, snap, e.Snapshot())

	_, err = e.MineItemsets(ctx, mining.Matrix{}, 0.5)
	assert.True(t, core.IsInvalidInput(err))
	assert.Same(t, snap, e.Snapshot())
}

func TestCanceledContext(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Analyze(ctx, exampleMatrix(), exampleParams())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, e.Snapshot())
}

func TestNoSnapshot(t *testing.T) {
	e := newTestEngine()
	assert.Nil(t, e.Snapshot())
	in, rs := e.RuleSet()
	assert.Nil(t, in)
	assert.Nil(t, rs)
	assert.Empty(t, e.TopItemsets(10, 1))
	assert.Empty(t, e.TopRules(10, 0))
	assert.Empty(t, e.Recommend([]string{"A"}, 5, 0))
	assert.Empty(t, e.FrequentlyBoughtTogether("A", 5))
	assert.Empty(t, e.RecommendBySimilarity([]string{"A"}, 5))
	_, ok := e.Explain("B", []string{"A"})
	assert.False(t, ok)

	got, err := e.QueryRules("rule.lift > 1.0", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServing(t *testing.T) {
	e := newTestEngine()
	_, err := e.Analyze(context.Background(), exampleMatrix(), exampleParams())
	require.NoError(t, err)

	together := e.FrequentlyBoughtTogether("B", 5)
	require.Len(t, together, 2)
	assert.Equal(t, "C", together[0].Item)
	assert.Equal(t, "A", together[1].Item)
	assert.Empty(t, e.FrequentlyBoughtTogether("Z", 5))

	similar := e.RecommendBySimilarity([]string{"C", "Z"}, 5)
	require.Len(t, similar, 1)
	assert.Equal(t, "B", similar[0].Item)
	assert.InDelta(t, 2*(1.0/0.75), similar[0].Score, 1e-9)

	ex, ok := e.Explain("B", []string{"C"})
	require.True(t, ok)
	assert.Equal(t, []string{"C"}, ex.BasedOn)
	assert.Equal(t, "Customers who bought C also bought B in 100.0% of cases. This association is 1.33x stronger than chance.", ex.Explanation)

	_, ok = e.Explain("B", []string{"C", "Z"})
	assert.False(t, ok, "unknown based_on items are rejected")
	_, ok = e.Explain("Z", []string{"C"})
	assert.False(t, ok)
}

func TestQueryRules(t *testing.T) {
	e := newTestEngine()
	_, err := e.Analyze(context.Background(), exampleMatrix(), exampleParams())
	require.NoError(t, err)

	tests := []struct {
		expr string
		n    int
		want [][2]string
	}{
		{expr: "rule.lift > 1.2", want: [][2]string{{"C", "B"}, {"B", "C"}}},
		{expr: "rule.lift > 1.2", n: 1, want: [][2]string{{"C", "B"}}},
		{expr: `"A" in rule.antecedents`, want: [][2]string{{"A", "B"}}},
		{expr: `"A" in rule.consequents && rule.confidence >= 0.6`, want: [][2]string{{"B", "A"}}},
		{expr: "rule.conviction > 2.0", want: [][2]string{{"C", "B"}}},
		{expr: "rule.leverage < 0.0", want: [][2]string{{"A", "B"}, {"B", "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.QueryRules(tt.expr, tt.n)
			require.NoError(t, err)
			pairs := make([][2]string, len(got))
			for i, r := range got {
				require.Len(t, r.Antecedents, 1)
				require.Len(t, r.Consequents, 1)
				pairs[i] = [2]string{r.Antecedents[0], r.Consequents[0]}
			}
			assert.Equal(t, tt.want, pairs)
		})
	}

	_, err = e.QueryRules("rule.lift >", 0)
	assert.True(t, core.IsInvalidInput(err))
	_, err = e.QueryRules("rule.lift", 0)
	assert.Error(t, err)
}

func TestRuleViewJSON(t *testing.T) {
	e := newTestEngine()
	_, err := e.Analyze(context.Background(), exampleMatrix(), exampleParams())
	require.NoError(t, err)
	rs := e.TopRules(0, 0)

	data, err := json.Marshal(rs[0])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "conviction")
	assert.Nil(t, got["conviction"])
	assert.Equal(t, []any{"C"}, got["antecedents"])

	data, err = json.Marshal(rs[1])
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(data, &got))
	assert.InDelta(t, 1.5, got["conviction"], 1e-9)
}

func assertSameSnapshot(t *testing.T, want, got *Snapshot) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Total, got.Total)
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.Itemsets, got.Itemsets)
	assert.Equal(t, want.Rules.Rules(), got.Rules.Rules())
	assert.Equal(t, want.Rules.Metric(), got.Rules.Metric())
	assert.Equal(t, want.Rules.Threshold(), got.Rules.Threshold())
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.Interner.Len(), got.Interner.Len())
}

func TestCodecRoundTrip(t *testing.T) {
	e := newTestEngine()
	snap, err := e.Analyze(context.Background(), exampleMatrix(), exampleParams())
	require.NoError(t, err)

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assertSameSnapshot(t, snap, got)
	assert.True(t, got.Rules.Rules()[0].UnboundedConviction())

	_, err = EncodeSnapshot(nil)
	assert.True(t, core.IsPrecondition(err))
}

func TestDecodeSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "version", data: `{"version":9,"total":1,"items":["A"]}`},
		{name: "total", data: `{"version":1,"total":0,"items":["A"]}`},
		{name: "duplicate items", data: `{"version":1,"total":1,"items":["A","A"]}`},
		{name: "itemset out of range", data: `{"version":1,"total":1,"items":["A"],"itemsets":[{"i":[3],"c":1}]}`},
		{name: "empty itemset", data: `{"version":1,"total":1,"items":["A"],"itemsets":[{"i":[],"c":1}]}`},
		{name: "rule out of range", data: `{"version":1,"total":1,"items":["A"],"rules":[{"a":[0],"c":[1]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.data))
			assert.True(t, core.IsInvalidInput(err), "got %v", err)
		})
	}

	_, err := DecodeSnapshot([]byte("{"))
	assert.Error(t, err)
}

func TestPersistAndRestore_Memory(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	ctx := context.Background()

	e := newTestEngine(WithStore(st, "test:snapshot"))
	snap, err := e.Analyze(ctx, exampleMatrix(), exampleParams())
	require.NoError(t, err)

	_, err = st.Get(ctx, "test:snapshot")
	require.NoError(t, err)

	restored := newTestEngine(WithStore(st, "test:snapshot"))
	got, err := restored.Restore(ctx)
	require.NoError(t, err)
	assertSameSnapshot(t, snap, got)
	assert.Equal(t, e.Recommend([]string{"B"}, 5, 0.5), restored.Recommend([]string{"B"}, 5, 0.5))
}

func TestPersistAndRestore_Badger(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := store.NewBadgerStore(dir, false)
	require.NoError(t, err)
	e := newTestEngine(WithStore(st, ""))
	snap, err := e.Analyze(ctx, exampleMatrix(), exampleParams())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = store.NewBadgerStore(dir, false)
	require.NoError(t, err)
	defer st.Close()
	restored := newTestEngine(WithStore(st, ""))
	got, err := restored.Restore(ctx)
	require.NoError(t, err)
	assertSameSnapshot(t, snap, got)
}

func TestRestore_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := newTestEngine().Restore(ctx)
	assert.True(t, core.IsPrecondition(err))

	st := store.NewMemoryStore()
	defer st.Close()
	_, err = newTestEngine(WithStore(st, "")).Restore(ctx)
	assert.True(t, core.IsStoreNotFound(err))
}

type failingStore struct{ *store.MemoryStore }

func (failingStore) Set(context.Context, string, []byte, ...int) error {
	return errors.New("disk full")
}

func TestPersistFailureKeepsSnapshot(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	ctx := context.Background()

	e := newTestEngine()
	snap, err := e.Analyze(ctx, exampleMatrix(), exampleParams())
	require.NoError(t, err)

	e.store = failingStore{mem}
	_, err = e.Analyze(ctx, exampleMatrix(), Params{MinSupport: 0.25})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Same(t, snap, e.Snapshot())
}

func TestConcurrentReadsDuringSwap(t *testing.T) {
	e := newTestEngine(WithWorkers(2))
	ctx := context.Background()
	_, err := e.Analyze(ctx, exampleMatrix(), exampleParams())
	require.NoError(t, err)

	other := mining.MatrixFromBaskets(nil, [][]string{{"A", "B"}, {"A", "B"}, {"B", "C"}, {"C", "D"}})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				in, rs := e.RuleSet()
				for _, r := range rs.Rules() {
					if in.Name(r.Antecedent[0]) == "" || in.Name(r.Consequent[0]) == "" {
						t.Errorf("rule %v missing from its own interner", r.Consequent)
						return
					}
				}
				_ = e.Recommend([]string{"A"}, 3, 0)
			}
		}()
	}

	for i := 0; i < 20; i++ {
		m := exampleMatrix()
		if i%2 == 0 {
			m = other
		}
		_, err := e.Analyze(ctx, m, exampleParams())
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}
