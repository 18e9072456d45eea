package mining

import (
	"sort"
	"strconv"
	"strings"
)

// Itemset 是频繁项集：Items 按标识升序，Count 为支持计数，Support = Count / 交易总数。
type Itemset struct {
	Items   []Item
	Count   int
	Support float64
}

// Len 返回项集大小。
func (s Itemset) Len() int { return len(s.Items) }

// Key 返回项集的规范化 key，用于去重与查找。
func (s Itemset) Key() string { return Key(s.Items) }

// Contains 判断项集是否包含某商品。
func (s Itemset) Contains(it Item) bool {
	for _, x := range s.Items {
		if x == it {
			return true
		}
	}
	return false
}

// Key 把已排序的 Item 列表编码为字符串 key，例如 "0,3,7"。
func Key(items []Item) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(it)))
	}
	return b.String()
}

// SortItemsets 按支持计数降序、长度升序、标识字典序排序，得到确定的全序。
func SortItemsets(sets []Itemset) {
	sort.Slice(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if len(a.Items) != len(b.Items) {
			return len(a.Items) < len(b.Items)
		}
		return lessItems(a.Items, b.Items)
	})
}

// lessItems 按字典序比较两个等长或不等长的 Item 列表。
func lessItems(a, b []Item) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}

// LessItems 是 lessItems 的导出版本，供规则排序使用。
func LessItems(a, b []Item) bool { return lessItems(a, b) }
