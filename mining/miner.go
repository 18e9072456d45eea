package mining

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

type mineOptions struct {
	workers int
}

// MineOption 配置挖掘过程。
type MineOption func(*mineOptions)

// WithWorkers 设置顶层 header 项并发挖掘的 worker 数，<= 1 表示串行。
func WithWorkers(n int) MineOption {
	return func(o *mineOptions) { o.workers = n }
}

// collector 是单个 worker 的本地结果缓冲，join 时合并，无需加锁。
type collector struct {
	total int
	sets  []Itemset
}

func (c *collector) emit(items []Item, count int) {
	cp := make([]Item, len(items))
	copy(cp, items)
	SortItems(cp)
	c.sets = append(c.sets, Itemset{
		Items:   cp,
		Count:   count,
		Support: float64(count) / float64(c.total),
	})
}

// Mine 在 FP-Tree 上递归挖掘所有满足最小支持计数的项集。
//
// 单路径树直接枚举路径上的所有组合；否则按 header 表中支持计数升序逐项：
// 输出 前缀∪{项}，收集条件模式基，构建条件树并递归。顶层各项相互独立，
// 通过 errgroup 分发给有限数量的 worker。
//
// 返回值已规范化（见 SortItemsets），与 worker 数无关。
func Mine(t *Tree, opts ...MineOption) []Itemset {
	o := mineOptions{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if t == nil || t.Empty() {
		return nil
	}

	if t.SinglePath() || o.workers <= 1 || len(t.order) == 1 {
		c := &collector{total: t.total}
		mineTree(t, nil, c)
		SortItemsets(c.sets)
		return c.sets
	}

	parts := make([][]Itemset, len(t.order))
	var eg errgroup.Group
	eg.SetLimit(o.workers)
	for i, it := range t.order {
		eg.Go(func() error {
			c := &collector{total: t.total}
			mineItem(t, it, nil, c)
			parts[i] = c.sets
			return nil
		})
	}
	// 挖掘本身不会失败，Wait 只用于 join。
	_ = eg.Wait()

	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Itemset, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	SortItemsets(out)
	return out
}

// mineTree 是递归主体。
func mineTree(t *Tree, prefix []Item, c *collector) {
	if t.SinglePath() {
		minePath(t, prefix, c)
		return
	}
	for _, it := range t.order {
		mineItem(t, it, prefix, c)
	}
}

// mineItem 处理 header 表中的单个商品。
func mineItem(t *Tree, it Item, prefix []Item, c *collector) {
	next := extend(prefix, it)
	c.emit(next, t.support[it])

	cond := buildTree(t.conditionalBase(it), t.minCount, t.total)
	if cond.Empty() {
		return
	}
	mineTree(cond, next, c)
}

// minePath 枚举单路径上的所有非空组合。路径上的计数自上而下单调不增，
// 因此一个组合的支持计数就是其中最深节点的计数。
func minePath(t *Tree, prefix []Item, c *collector) {
	path := t.path()
	var walk func(start int, acc []Item)
	walk = func(start int, acc []Item) {
		for i := start; i < len(path); i++ {
			n := t.nodes[path[i]]
			next := extend(acc, n.item)
			c.emit(next, n.count)
			walk(i+1, next)
		}
	}
	walk(0, prefix)
}

// extend 返回 prefix+it 的新切片，不与 prefix 共享底层数组。
func extend(prefix []Item, it Item) []Item {
	out := make([]Item, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = it
	return out
}
