package main

import (
	"context"

	"github.com/rushteam/assockit/config"
	"github.com/rushteam/assockit/config/builders"
	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/engine"
	"github.com/rushteam/assockit/pipeline"
	"github.com/rushteam/assockit/pkg/utils"
)

// pipelineItem 是流水线输出的一条候选。
type pipelineItem struct {
	Item     string                 `json:"item"`
	Score    float64                `json:"score"`
	Features map[string]float64     `json:"features,omitempty"`
	Labels   map[string]utils.Label `json:"labels,omitempty"`
}

// runPipeline 加载 YAML 流水线，以 e 作为规则来源、st 作为黑名单存储执行一次推荐。
// params 只应包含命令行显式设置的参数，否则会覆盖 YAML 中节点自己的配置。
func runPipeline(ctx context.Context, e *engine.Engine, st core.Store, path string, basket []string, params map[string]any) ([]pipelineItem, error) {
	builders.RegisterRecall(e)
	if st != nil {
		builders.RegisterStore(st)
	}

	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return nil, err
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{
		Basket: basket,
		Scene:  "cli",
		Params: params,
	}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]pipelineItem, 0, len(items))
	for _, it := range items {
		out = append(out, pipelineItem{Item: it.ID, Score: it.Score, Features: it.Features, Labels: it.Labels})
	}
	return out, nil
}
