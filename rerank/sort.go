package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/pipeline"
)

// ScoreSortNode 按 Score 降序重排，相同时按 lift 特征降序，再按 ID 升序，
// 多路召回合并后的顺序因此是确定的。
type ScoreSortNode struct{}

func (n *ScoreSortNode) Name() string {
	return "rerank.sort"
}

func (n *ScoreSortNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *ScoreSortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if la, lb := a.Feature(core.FeatureLift), b.Feature(core.FeatureLift); la != lb {
			return la > lb
		}
		return a.ID < b.ID
	})
	return out, nil
}
