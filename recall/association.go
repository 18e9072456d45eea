package recall

import (
	"context"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/pipeline"
	"github.com/rushteam/assockit/pkg/conv"
	"github.com/rushteam/assockit/pkg/utils"
	"github.com/rushteam/assockit/rules"
)

// AssociationRecall 是基于关联规则的购物篮召回源：
// 前件被 rctx.Basket 覆盖的规则推导出候选，Score 为最佳规则的 confidence。
// 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
//
// rctx.Params 中的 top_n / min_confidence 可覆盖节点配置。
type AssociationRecall struct {
	Provider      RuleProvider
	TopN          int
	MinConfidence float64
}

func (r *AssociationRecall) Name() string        { return "recall.association" }
func (r *AssociationRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *AssociationRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *AssociationRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	in, rs := providerRules(r.Provider)
	if rs.Len() == 0 || rctx == nil {
		return nil, nil
	}
	topN := int(conv.ConfigGetInt64(rctx.Params, "top_n", int64(r.TopN)))
	minConf := conv.ConfigGetFloat64(rctx.Params, "min_confidence", r.MinConfidence)

	recs := Recommend(in.Resolve(rctx.Basket), rs.Rules(), topN, minConf)
	out := make([]*core.Item, 0, len(recs))
	for _, rec := range recs {
		it := newCandidate(in.Name(rec.Item), rec.Confidence, rec.Confidence, rec.Lift, rec.Support)
		it.PutLabel("based_on", utils.ItemsLabel(in.Names(rec.BasedOn), r.Name()))
		out = append(out, it)
	}
	return out, nil
}

// TogetherRecall 召回与 Anchor（或 rctx.Basket 的第一个商品）经常一起购买的商品。
type TogetherRecall struct {
	Provider RuleProvider
	Anchor   string
	TopN     int
}

func (r *TogetherRecall) Name() string        { return "recall.together" }
func (r *TogetherRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *TogetherRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *TogetherRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	in, rs := providerRules(r.Provider)
	if rs.Len() == 0 {
		return nil, nil
	}
	anchor := r.Anchor
	if anchor == "" && rctx != nil && len(rctx.Basket) > 0 {
		anchor = rctx.Basket[0]
	}
	id, ok := in.Lookup(anchor)
	if !ok {
		return nil, nil
	}
	topN := r.TopN
	if rctx != nil {
		topN = int(conv.ConfigGetInt64(rctx.Params, "top_n", int64(topN)))
	}

	found := FrequentlyBoughtTogether(id, rs.Rules(), topN)
	out := make([]*core.Item, 0, len(found))
	for _, t := range found {
		it := newCandidate(in.Name(t.Item), t.Confidence, t.Confidence, t.Lift, t.Support)
		it.PutLabel("based_on", utils.Label{Value: anchor, Source: r.Name()})
		out = append(out, it)
	}
	return out, nil
}

// SimilarityRecall 按累计 lift 召回与购物篮共现的商品，Score 为累计 lift。
type SimilarityRecall struct {
	Provider RuleProvider
	TopN     int
}

func (r *SimilarityRecall) Name() string        { return "recall.similarity" }
func (r *SimilarityRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *SimilarityRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *SimilarityRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	in, rs := providerRules(r.Provider)
	if rs.Len() == 0 || rctx == nil {
		return nil, nil
	}
	topN := int(conv.ConfigGetInt64(rctx.Params, "top_n", int64(r.TopN)))

	found := RecommendBySimilarity(in.Resolve(rctx.Basket), rs.Rules(), topN)
	out := make([]*core.Item, 0, len(found))
	for _, s := range found {
		it := core.NewItem(in.Name(s.Item))
		it.Score = s.Score
		it.Features[core.FeatureSupport] = s.Support
		out = append(out, it)
	}
	return out, nil
}

// providerRules 读取一次规则快照；没有字典时视为没有规则。
func providerRules(p RuleProvider) (*mining.Interner, *rules.RuleSet) {
	if p == nil {
		return nil, nil
	}
	in, rs := p.RuleSet()
	if in == nil {
		return nil, nil
	}
	return in, rs
}

func newCandidate(id string, score, confidence, lift, support float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	it.Features[core.FeatureConfidence] = confidence
	it.Features[core.FeatureLift] = lift
	it.Features[core.FeatureSupport] = support
	return it
}
