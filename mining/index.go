package mining

import (
	"math"
	"sort"

	"github.com/rushteam/assockit/core"
)

// Transaction 是一笔交易中出现的商品，按全局频次降序、标识升序排列，且互不重复。
type Transaction []Item

// Index 是交易索引：挖掘所需的紧凑输入。
type Index struct {
	Interner     *Interner
	Transactions []Transaction
	Frequency    []int // Frequency[item] = 包含该商品的交易数
	Total        int   // 非空交易数，support 的分母不含空行
}

// BuildIndex 把布尔矩阵转为交易索引。
//
// 空矩阵、列名为空/重复、行长度与列数不一致时返回 INVALID_INPUT；
// 没有任何商品的行会被丢弃，全部被丢弃时同样返回 INVALID_INPUT。
// 函数不修改输入。
func BuildIndex(m Matrix) (*Index, error) {
	if len(m.Cells) == 0 {
		return nil, core.InvalidInputError(core.ModuleMining, "matrix has no rows", "rows", 0)
	}
	if len(m.Columns) == 0 {
		return nil, core.InvalidInputError(core.ModuleMining, "matrix has no columns", "columns", 0)
	}

	in := NewInterner()
	for i, name := range m.Columns {
		if name == "" {
			return nil, core.InvalidInputError(core.ModuleMining, "empty column name", "column", i)
		}
		if _, dup := in.Lookup(name); dup {
			return nil, core.InvalidInputError(core.ModuleMining, "duplicate column name", "column", name)
		}
		in.Intern(name)
	}

	freq := make([]int, len(m.Columns))
	txs := make([]Transaction, 0, len(m.Cells))
	for r, row := range m.Cells {
		if len(row) != len(m.Columns) {
			return nil, core.InvalidInputError(core.ModuleMining, "row length does not match column count", "row", rowRef(m, r))
		}
		var tx Transaction
		for c, present := range row {
			if present {
				tx = append(tx, Item(c))
				freq[c]++
			}
		}
		if len(tx) == 0 {
			continue
		}
		txs = append(txs, tx)
	}
	if len(txs) == 0 {
		return nil, core.InvalidInputError(core.ModuleMining, "matrix has no non-empty transactions", "rows", len(m.Cells))
	}

	for _, tx := range txs {
		sortByFrequency(tx, freq)
	}

	return &Index{
		Interner:     in,
		Transactions: txs,
		Frequency:    freq,
		Total:        len(txs),
	}, nil
}

// MinCount 把支持度比例换算为最小支持计数（向上取整），minSupport 必须在 (0, 1]。
func (idx *Index) MinCount(minSupport float64) (int, error) {
	return MinCount(minSupport, idx.Total)
}

// supportEpsilon 吸收浮点误差，使 0.5*4 这类乘积不会被向上取整到 3。
const supportEpsilon = 1e-9

// MinCount 把支持度比例换算为最小支持计数。
func MinCount(minSupport float64, total int) (int, error) {
	if math.IsNaN(minSupport) || minSupport <= 0 || minSupport > 1 {
		return 0, core.InvalidInputError(core.ModuleMining, "min_support must be in (0, 1]", "min_support", minSupport)
	}
	count := int(math.Ceil(minSupport*float64(total) - supportEpsilon))
	if count < 1 {
		count = 1
	}
	return count, nil
}

// sortByFrequency 按频次降序、标识升序排序。
func sortByFrequency(items []Item, freq []int) {
	sort.Slice(items, func(i, j int) bool {
		fi, fj := freq[items[i]], freq[items[j]]
		if fi != fj {
			return fi > fj
		}
		return items[i] < items[j]
	})
}

func rowRef(m Matrix, r int) any {
	if r < len(m.RowIDs) {
		return m.RowIDs[r]
	}
	return r
}
