package rerank

import (
	"context"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/pipeline"
	"github.com/rushteam/assockit/pkg/conv"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个商品。
// 通常放在 ScoreSortNode 之后。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Fanout{...},
//	        &filter.FilterNode{...},
//	        &rerank.ScoreSortNode{},
//	        &rerank.TopNNode{N: 5},
//	    },
//	}
type TopNNode struct {
	// N 要保留的商品数量；N <= 0 时不截断。
	// rctx.Params["top_n"] 存在时优先使用。
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if rctx != nil {
		limit = int(conv.ConfigGetInt64(rctx.Params, "top_n", int64(limit)))
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
