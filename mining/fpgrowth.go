package mining

// Result 是一次完整挖掘的产出。交易索引与 FP-Tree 在挖掘后即被丢弃，
// 只保留解释结果所需的 Interner 与计数。
type Result struct {
	Interner   *Interner
	Itemsets   []Itemset
	Total      int
	MinSupport float64
	MinCount   int
}

// FindFrequentItemsets 串起 交易索引 → FP-Tree → 条件模式挖掘。
//
// 错误：
//   - INVALID_INPUT：矩阵非法，或 min_support 不在 (0, 1]
//   - EMPTY_RESULT：没有单个商品达到最小支持计数
func FindFrequentItemsets(m Matrix, minSupport float64, opts ...MineOption) (*Result, error) {
	idx, err := BuildIndex(m)
	if err != nil {
		return nil, err
	}
	minCount, err := idx.MinCount(minSupport)
	if err != nil {
		return nil, err
	}
	tree, err := BuildTree(idx, minCount)
	if err != nil {
		return nil, err
	}
	return &Result{
		Interner:   idx.Interner,
		Itemsets:   Mine(tree, opts...),
		Total:      idx.Total,
		MinSupport: minSupport,
		MinCount:   minCount,
	}, nil
}

// ByLength 返回指定长度的项集（保持原有顺序）。
func ByLength(sets []Itemset, length int) []Itemset {
	var out []Itemset
	for _, s := range sets {
		if len(s.Items) == length {
			out = append(out, s)
		}
	}
	return out
}

// Top 返回长度 >= minLength 的前 n 个项集；n <= 0 表示不截断。
func Top(sets []Itemset, n, minLength int) []Itemset {
	var out []Itemset
	for _, s := range sets {
		if len(s.Items) < minLength {
			continue
		}
		out = append(out, s)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// MaxLength 返回最长项集的长度。
func MaxLength(sets []Itemset) int {
	longest := 0
	for _, s := range sets {
		if len(s.Items) > longest {
			longest = len(s.Items)
		}
	}
	return longest
}
