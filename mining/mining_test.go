package mining

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/assockit/core"
)

func exampleMatrix() Matrix {
	return MatrixFromBaskets(nil, [][]string{
		{"A", "B"},
		{"A", "B", "C"},
		{"A"},
		{"B", "C"},
	})
}

// bruteForce 枚举所有列组合并直接数交易，作为挖掘结果的对照。
func bruteForce(m Matrix, minCount int) map[string]int {
	out := make(map[string]int)
	cols := len(m.Columns)
	for mask := 1; mask < 1<<cols; mask++ {
		var items []Item
		for c := 0; c < cols; c++ {
			if mask&(1<<c) != 0 {
				items = append(items, Item(c))
			}
		}
		count := 0
		for _, row := range m.Cells {
			all := true
			for _, it := range items {
				if !row[it] {
					all = false
					break
				}
			}
			if all {
				count++
			}
		}
		if count >= minCount {
			out[Key(items)] = count
		}
	}
	return out
}

func toMap(sets []Itemset) map[string]int {
	out := make(map[string]int, len(sets))
	for _, s := range sets {
		out[s.Key()] = s.Count
	}
	return out
}

func randomMatrix(seed int64, rows, cols int, density float64) Matrix {
	rng := rand.New(rand.NewSource(seed))
	names := make([]string, cols)
	for i := range names {
		names[i] = string(rune('a' + i))
	}
	cells := make([][]bool, rows)
	for r := range cells {
		row := make([]bool, cols)
		for c := range row {
			row[c] = rng.Float64() < density
		}
		cells[r] = row
	}
	return Matrix{Columns: names, Cells: cells}
}

func TestFindFrequentItemsets_Example(t *testing.T) {
	res, err := FindFrequentItemsets(exampleMatrix(), 0.5)
	require.NoError(t, err)
	require.Equal(t, 4, res.Total)
	require.Equal(t, 2, res.MinCount)

	got := make(map[string]float64)
	for _, s := range res.Itemsets {
		key := ""
		for i, n := range res.Interner.Names(s.Items) {
			if i > 0 {
				key += ","
			}
			key += n
		}
		got[key] = s.Support
	}
	assert.InDelta(t, 0.75, got["A"], 1e-9)
	assert.InDelta(t, 0.75, got["B"], 1e-9)
	assert.InDelta(t, 0.5, got["C"], 1e-9)
	assert.InDelta(t, 0.5, got["A,B"], 1e-9)
	assert.InDelta(t, 0.5, got["B,C"], 1e-9)
	assert.NotContains(t, got, "A,C")
	assert.NotContains(t, got, "A,B,C")
}

func TestMine_SupportMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name       string
		matrix     Matrix
		minSupport float64
	}{
		{
			name: "five transactions over three items",
			matrix: MatrixFromBaskets(nil, [][]string{
				{"A", "B", "C"},
				{"A", "B"},
				{"A", "C"},
				{"B"},
				{"A", "B", "C"},
			}),
			minSupport: 0.2,
		},
		{name: "random dense", matrix: randomMatrix(1, 60, 8, 0.5), minSupport: 0.1},
		{name: "random sparse", matrix: randomMatrix(2, 120, 10, 0.2), minSupport: 0.03},
		{name: "random high threshold", matrix: randomMatrix(3, 80, 9, 0.6), minSupport: 0.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := FindFrequentItemsets(tt.matrix, tt.minSupport, WithWorkers(1))
			require.NoError(t, err)
			want := bruteForce(tt.matrix, res.MinCount)
			assert.Equal(t, want, toMap(res.Itemsets))
		})
	}
}

func TestMine_AntiMonotone(t *testing.T) {
	res, err := FindFrequentItemsets(randomMatrix(7, 100, 9, 0.45), 0.08)
	require.NoError(t, err)
	counts := toMap(res.Itemsets)

	for _, s := range res.Itemsets {
		k := len(s.Items)
		for mask := 1; mask < (1<<k)-1; mask++ {
			var sub []Item
			for i := 0; i < k; i++ {
				if mask&(1<<i) != 0 {
					sub = append(sub, s.Items[i])
				}
			}
			c, ok := counts[Key(sub)]
			require.True(t, ok, "subset %v of %v missing", sub, s.Items)
			assert.GreaterOrEqual(t, c, s.Count)
		}
	}
}

func TestMine_DeterministicAcrossWorkers(t *testing.T) {
	m := randomMatrix(11, 200, 12, 0.3)
	base, err := FindFrequentItemsets(m, 0.05, WithWorkers(1))
	require.NoError(t, err)
	for _, w := range []int{2, 4, 16} {
		res, err := FindFrequentItemsets(m, 0.05, WithWorkers(w))
		require.NoError(t, err)
		assert.Equal(t, base.Itemsets, res.Itemsets, "workers=%d", w)
	}
}

func TestMine_CanonicalItemOrder(t *testing.T) {
	res, err := FindFrequentItemsets(randomMatrix(5, 50, 6, 0.5), 0.1)
	require.NoError(t, err)
	for _, s := range res.Itemsets {
		for i := 1; i < len(s.Items); i++ {
			assert.Less(t, s.Items[i-1], s.Items[i])
		}
	}
	for i := 1; i < len(res.Itemsets); i++ {
		assert.GreaterOrEqual(t, res.Itemsets[i-1].Count, res.Itemsets[i].Count)
	}
}

func TestMine_Boundaries(t *testing.T) {
	t.Run("min_support 1.0 keeps only universal items", func(t *testing.T) {
		m := MatrixFromBaskets(nil, [][]string{
			{"milk", "bread"},
			{"milk", "eggs"},
			{"milk", "bread", "eggs"},
		})
		res, err := FindFrequentItemsets(m, 1.0)
		require.NoError(t, err)
		require.Len(t, res.Itemsets, 1)
		assert.Equal(t, []string{"milk"}, res.Interner.Names(res.Itemsets[0].Items))
		assert.InDelta(t, 1.0, res.Itemsets[0].Support, 1e-9)
	})

	t.Run("min_support 1.0 without universal items is empty result", func(t *testing.T) {
		_, err := FindFrequentItemsets(exampleMatrix(), 1.0)
		require.Error(t, err)
		assert.True(t, core.IsEmptyResult(err))
	})

	t.Run("tiny min_support yields every co-occurring itemset", func(t *testing.T) {
		m := MatrixFromBaskets(nil, [][]string{{"x", "y", "z"}, {"x"}, {"y", "z"}})
		res, err := FindFrequentItemsets(m, 0.0001)
		require.NoError(t, err)
		assert.Equal(t, bruteForce(m, 1), toMap(res.Itemsets))
		assert.Equal(t, 3, MaxLength(res.Itemsets))
	})
}

func TestMine_SinglePathShortCircuit(t *testing.T) {
	// 所有交易都是同一链条的前缀，全局树就是一条路径。
	m := MatrixFromBaskets(nil, [][]string{
		{"a", "b", "c", "d"},
		{"a", "b", "c"},
		{"a", "b"},
		{"a"},
	})
	idx, err := BuildIndex(m)
	require.NoError(t, err)
	tree, err := BuildTree(idx, 1)
	require.NoError(t, err)
	require.True(t, tree.SinglePath())
	assert.Equal(t, 4, tree.Len())

	sets := Mine(tree)
	assert.Len(t, sets, 15)
	assert.Equal(t, bruteForce(m, 1), toMap(sets))
}

func TestBuildTree_PrefixSharingAndHeader(t *testing.T) {
	idx, err := BuildIndex(exampleMatrix())
	require.NoError(t, err)
	tree, err := BuildTree(idx, 1)
	require.NoError(t, err)

	a, _ := idx.Interner.Lookup("A")
	b, _ := idx.Interner.Lookup("B")
	c, _ := idx.Interner.Lookup("C")
	assert.Equal(t, 3, tree.Support(a))
	assert.Equal(t, 3, tree.Support(b))
	assert.Equal(t, 2, tree.Support(c))
	assert.False(t, tree.SinglePath())
	// 支持计数升序：C 先于 A/B
	assert.Equal(t, c, tree.HeaderItems()[0])

	// A(3) 先于 B(3)（标识更小），共享前缀 A→B
	// 树：root→A(3)→B(2)→C(1)，root→B(1)→C(1)
	assert.Equal(t, 5, tree.Len())
	total := 0
	for _, h := range tree.heads[c] {
		total += tree.nodes[h].count
	}
	assert.Equal(t, 2, total)
}

func TestBuildTree_Errors(t *testing.T) {
	idx, err := BuildIndex(exampleMatrix())
	require.NoError(t, err)

	_, err = BuildTree(idx, 5)
	require.Error(t, err)
	assert.True(t, core.IsEmptyResult(err))

	_, err = BuildTree(idx, 0)
	assert.True(t, core.IsInvalidInput(err))

	_, err = BuildTree(nil, 1)
	assert.True(t, core.IsPrecondition(err))
}

func TestMine_EmptyTree(t *testing.T) {
	assert.Nil(t, Mine(nil))
	assert.Nil(t, Mine(buildTree(nil, 1, 1)))
}
