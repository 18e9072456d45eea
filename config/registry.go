package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/pipeline"
)

// 节点注册表。filter / rerank.* 由 import _ "github.com/rushteam/assockit/config/builders"
// 在 init 中注册；recall.* 依赖规则快照，需调用 builders.RegisterRecall(provider)。

// NodeBuilder 与 pipeline.NodeBuilder 一致。
type NodeBuilder = pipeline.NodeBuilder

// recallPrefix 是召回节点类型的前缀，流水线的候选只能由召回节点产生。
const recallPrefix = "recall."

var (
	registry   = make(map[string]NodeBuilder)
	registryMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑；同名类型后注册的覆盖先前的。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typeName] = builder
}

func registered(typeName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[typeName]
	return ok
}

// SupportedTypes 返回已注册的 Node 类型（排序）。
func SupportedTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回当前注册表的快照。之后的 Register 不影响已返回的 factory。
func DefaultFactory() *pipeline.NodeFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range registry {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 在构建前检查流水线：
//   - 至少一个节点，且每个节点的类型非空并已注册
//   - 第一个节点是 recall.*，过滤与重排只能作用在已召回的候选上
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil || len(cfg.Pipeline.Nodes) == 0 {
		return core.InvalidInputError(core.ModuleConfig, "pipeline has no nodes", "pipeline.nodes", 0)
	}
	for i, nc := range cfg.Pipeline.Nodes {
		param := fmt.Sprintf("pipeline.nodes[%d].type", i)
		if nc.Type == "" {
			return core.InvalidInputError(core.ModuleConfig, "node type is empty", param, nc.Type)
		}
		if !registered(nc.Type) {
			return core.InvalidInputError(core.ModuleConfig,
				fmt.Sprintf("unsupported node type (supported: %s)", strings.Join(SupportedTypes(), ", ")),
				param, nc.Type)
		}
	}
	if first := cfg.Pipeline.Nodes[0].Type; !strings.HasPrefix(first, recallPrefix) {
		return core.InvalidInputError(core.ModuleConfig, "first node must be a recall node", "pipeline.nodes[0].type", first)
	}
	return nil
}
