// Package builders 注册内置 Node 的配置构建器。
//
//	import _ "github.com/rushteam/assockit/config/builders" // filter / rerank.*
//	builders.RegisterRecall(eng)                            // recall.*（依赖规则快照）
//	builders.RegisterStore(st)                              // blacklist 的 key
package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/assockit/config"
	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/filter"
	"github.com/rushteam/assockit/pipeline"
	"github.com/rushteam/assockit/pkg/conv"
	"github.com/rushteam/assockit/recall"
	"github.com/rushteam/assockit/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.sort", BuildScoreSortNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// RegisterRecall 注册依赖规则快照的召回节点，后注册的 provider 覆盖先前的。
func RegisterRecall(provider recall.RuleProvider) {
	config.Register("recall.association", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildAssociation(provider, cfg), nil
	})
	config.Register("recall.together", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildTogether(provider, cfg), nil
	})
	config.Register("recall.similarity", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildSimilarity(provider, cfg), nil
	})
	config.Register("recall.fanout", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return BuildFanoutNode(provider, cfg)
	})
}

func buildAssociation(p recall.RuleProvider, cfg map[string]interface{}) *recall.AssociationRecall {
	d := &core.DefaultMiningConfig{}
	return &recall.AssociationRecall{
		Provider:      p,
		TopN:          int(conv.ConfigGetInt64(cfg, "top_n", int64(d.DefaultTopN()))),
		MinConfidence: conv.ConfigGetFloat64(cfg, "min_confidence", d.DefaultMinConfidence()),
	}
}

func buildTogether(p recall.RuleProvider, cfg map[string]interface{}) *recall.TogetherRecall {
	return &recall.TogetherRecall{
		Provider: p,
		Anchor:   conv.ConfigGet(cfg, "anchor", ""),
		TopN:     int(conv.ConfigGetInt64(cfg, "top_n", 0)),
	}
}

func buildSimilarity(p recall.RuleProvider, cfg map[string]interface{}) *recall.SimilarityRecall {
	return &recall.SimilarityRecall{
		Provider: p,
		TopN:     int(conv.ConfigGetInt64(cfg, "top_n", 0)),
	}
}

// BuildFanoutNode 构建多路召回：sources 为 [{type: association|together|similarity, ...}]。
func BuildFanoutNode(p recall.RuleProvider, cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "association":
			sources = append(sources, buildAssociation(p, sourceMap))
		case "together":
			sources = append(sources, buildTogether(p, sourceMap))
		case "similarity":
			sources = append(sources, buildSimilarity(p, sourceMap))
		default:
			return nil, fmt.Errorf("unknown source type: %s (supported: association, together, similarity)", sourceType)
		}
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", recall.MergeFirst),
		Timeout:       (&core.DefaultMiningConfig{}).DefaultTimeout(),
	}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	switch fanout.MergeStrategy {
	case recall.MergeFirst, recall.MergeUnion, recall.MergePriority:
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s", fanout.MergeStrategy)
	}
	return fanout, nil
}

func BuildScoreSortNode(_ map[string]interface{}) (pipeline.Node, error) {
	return &rerank.ScoreSortNode{}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

// RegisterStore 让配置驱动的 blacklist 过滤器可以读取 st 中的 key，后注册的覆盖先前的。
func RegisterStore(st core.Store) {
	config.Register("filter", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(st, cfg)
	})
}

// BuildFilterNode 构建过滤节点：filters 为 [{type: basket|blacklist|expression, ...}]。
// 未调用 RegisterStore 时 blacklist 只支持 item_ids。
func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return buildFilterNode(nil, cfg)
}

func buildFilterNode(st core.Store, cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "basket":
			filters = append(filters, &filter.BasketFilter{})
		case "blacklist":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			if ids == nil {
				ids = []string{}
			}
			key := conv.ConfigGet(filterMap, "key", "")
			var adapter *filter.StoreAdapter
			if key != "" {
				if st == nil {
					return nil, fmt.Errorf("blacklist key %q requires a store", key)
				}
				adapter = filter.NewStoreAdapter(st)
			}
			filters = append(filters, filter.NewBlacklistFilter(ids, adapter, key))
		case "expression":
			f, err := filter.NewExpressionFilter(conv.ConfigGet(filterMap, "expr", ""))
			if err != nil {
				return nil, fmt.Errorf("expression filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}
