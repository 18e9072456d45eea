package mining

import (
	"sort"

	"github.com/rushteam/assockit/core"
)

// rootHandle 是根节点在 arena 中的下标；根节点不对应任何商品。
const (
	rootHandle int32 = 0
	noHandle   int32 = -1
	rootItem   Item  = -1
)

// node 是 FP-Tree 节点。节点归属于 arena，parent/firstChild 都是 arena 下标。
type node struct {
	item       Item
	count      int
	parent     int32
	firstChild int32
	childCount int32
}

// edge 唯一确定 (父节点, 商品) 的子节点。
type edge struct {
	parent int32
	item   Item
}

// weightedPath 是带权重的商品路径：原始交易权重为 1，条件模式基中为节点计数。
type weightedPath struct {
	items []Item
	count int
}

// Tree 是 FP-Tree 及其 header 表。
//
// header 表把同一商品的所有节点串起来（node-link），挖掘时通过它
// 收集条件模式基。树只在一次挖掘内使用，挖掘结束即丢弃。
type Tree struct {
	nodes     []node
	children  map[edge]int32
	heads     map[Item][]int32 // header 表：商品 → 节点下标
	support   map[Item]int     // 剪枝后保留商品的支持计数
	order     []Item           // header 商品，按支持计数升序、标识升序
	branching bool
	minCount  int
	total     int
}

// BuildTree 从交易索引构建全局 FP-Tree。
//
// 支持计数低于 minCount 的商品在插入前被剪掉；剩余商品按频次降序、
// 标识升序插入。没有商品存活时返回 EMPTY_RESULT。
func BuildTree(idx *Index, minCount int) (*Tree, error) {
	if idx == nil || idx.Total == 0 {
		return nil, core.PreconditionError(core.ModuleMining, "transaction index is empty", "index", nil)
	}
	if minCount < 1 {
		return nil, core.InvalidInputError(core.ModuleMining, "min support count must be positive", "min_count", minCount)
	}

	paths := make([]weightedPath, len(idx.Transactions))
	for i, tx := range idx.Transactions {
		paths[i] = weightedPath{items: tx, count: 1}
	}
	t := buildTree(paths, minCount, idx.Total)
	if len(t.order) == 0 {
		return nil, core.EmptyResultError(core.ModuleMining, "no item reaches the minimum support count", "min_count", minCount)
	}
	return t, nil
}

// buildTree 统计路径中的商品支持计数、剪枝、排序并插入。
// 条件 FP-Tree 也走这里，结果为空时返回一棵只有根节点的树。
func buildTree(paths []weightedPath, minCount, total int) *Tree {
	counts := make(map[Item]int)
	for _, p := range paths {
		for _, it := range p.items {
			counts[it] += p.count
		}
	}

	t := &Tree{
		nodes:    []node{{item: rootItem, parent: noHandle, firstChild: noHandle}},
		children: make(map[edge]int32),
		heads:    make(map[Item][]int32),
		support:  make(map[Item]int),
		minCount: minCount,
		total:    total,
	}
	for it, c := range counts {
		if c >= minCount {
			t.support[it] = c
			t.order = append(t.order, it)
		}
	}
	if len(t.order) == 0 {
		return t
	}
	sort.Slice(t.order, func(i, j int) bool {
		si, sj := t.support[t.order[i]], t.support[t.order[j]]
		if si != sj {
			return si < sj
		}
		return t.order[i] < t.order[j]
	})

	buf := make([]Item, 0, 16)
	for _, p := range paths {
		buf = buf[:0]
		for _, it := range p.items {
			if _, ok := t.support[it]; ok {
				buf = append(buf, it)
			}
		}
		if len(buf) == 0 {
			continue
		}
		sort.Slice(buf, func(i, j int) bool {
			si, sj := t.support[buf[i]], t.support[buf[j]]
			if si != sj {
				return si > sj
			}
			return buf[i] < buf[j]
		})
		t.insert(buf, p.count)
	}
	return t
}

// insert 是唯一修改树结构的操作：沿已有子节点累加计数，缺失时新建节点并挂到 header 表。
func (t *Tree) insert(items []Item, count int) {
	cur := rootHandle
	for _, it := range items {
		key := edge{parent: cur, item: it}
		if child, ok := t.children[key]; ok {
			t.nodes[child].count += count
			cur = child
			continue
		}

		h := int32(len(t.nodes))
		t.nodes = append(t.nodes, node{item: it, count: count, parent: cur, firstChild: noHandle})
		t.children[key] = h

		parent := &t.nodes[cur]
		if parent.childCount == 0 {
			parent.firstChild = h
		}
		parent.childCount++
		if parent.childCount > 1 {
			t.branching = true
		}
		t.heads[it] = append(t.heads[it], h)
		cur = h
	}
}

// Empty 表示剪枝后没有任何商品。
func (t *Tree) Empty() bool { return len(t.order) == 0 }

// Len 返回除根节点外的节点数。
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// HeaderItems 返回 header 表中的商品（支持计数升序）。
func (t *Tree) HeaderItems() []Item {
	out := make([]Item, len(t.order))
	copy(out, t.order)
	return out
}

// Support 返回商品在本树中的支持计数（header 链上所有节点计数之和）。
func (t *Tree) Support(it Item) int { return t.support[it] }

// SinglePath 判断树是否是一条从根到叶的无分叉路径。
func (t *Tree) SinglePath() bool { return !t.branching }

// path 返回单路径树从根往下的节点下标（不含根）。
func (t *Tree) path() []int32 {
	var out []int32
	for h := t.nodes[rootHandle].firstChild; h != noHandle; h = t.nodes[h].firstChild {
		out = append(out, h)
	}
	return out
}

// conditionalBase 收集商品的条件模式基：对 header 链上的每个节点向上走到根，
// 以该节点计数作为路径权重。
func (t *Tree) conditionalBase(it Item) []weightedPath {
	handles := t.heads[it]
	base := make([]weightedPath, 0, len(handles))
	for _, h := range handles {
		n := t.nodes[h]
		var items []Item
		for p := n.parent; p != rootHandle; p = t.nodes[p].parent {
			items = append(items, t.nodes[p].item)
		}
		if len(items) == 0 {
			continue
		}
		base = append(base, weightedPath{items: items, count: n.count})
	}
	return base
}
