package filter

import (
	"context"

	"github.com/rushteam/assockit/core"
)

// BasketFilter 过滤掉已经在购物篮中的商品。
// 多路召回合并后，来自相似度等召回源的候选可能与购物篮重叠。
type BasketFilter struct{}

func (f *BasketFilter) Name() string {
	return "filter.basket"
}

func (f *BasketFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	return rctx.InBasket(item.ID), nil
}
