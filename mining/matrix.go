package mining

import "sort"

// Matrix 是布尔交易矩阵：行是交易，列是商品，单元格表示商品是否出现。
type Matrix struct {
	RowIDs  []string // 交易标识（可选，仅用于报错定位）
	Columns []string // 商品名称
	Cells   [][]bool // Cells[row][col]
}

// Rows 返回行数。
func (m Matrix) Rows() int { return len(m.Cells) }

// MatrixFromBaskets 把“每笔交易一个商品列表”编码为 one-hot 矩阵。
// 列按商品名称排序；同一交易内重复的商品只计一次；空名称被忽略。
func MatrixFromBaskets(ids []string, baskets [][]string) Matrix {
	colSet := make(map[string]struct{})
	for _, b := range baskets {
		for _, name := range b {
			if name != "" {
				colSet[name] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(colSet))
	for name := range colSet {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	pos := make(map[string]int, len(cols))
	for i, name := range cols {
		pos[name] = i
	}

	cells := make([][]bool, len(baskets))
	for r, b := range baskets {
		row := make([]bool, len(cols))
		for _, name := range b {
			if name == "" {
				continue
			}
			row[pos[name]] = true
		}
		cells[r] = row
	}

	var rowIDs []string
	if len(ids) == len(baskets) {
		rowIDs = append(rowIDs, ids...)
	}
	return Matrix{RowIDs: rowIDs, Columns: cols, Cells: cells}
}
