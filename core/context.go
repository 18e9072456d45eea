package core

import "github.com/rushteam/assockit/pkg/utils"

// RecommendContext 承载购物篮/场景/请求信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// Basket 是当前购物篮中的商品名称（未知商品会被忽略）
	Basket []string

	// Scene 是推荐场景，例如 cart / product_page
	Scene string

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数：top_n, min_confidence 等
	Params map[string]any
}

// InBasket 判断商品是否已在购物篮中。
func (rctx *RecommendContext) InBasket(id string) bool {
	if rctx == nil {
		return false
	}
	for _, b := range rctx.Basket {
		if b == id {
			return true
		}
	}
	return false
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
