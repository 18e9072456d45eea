// Package assockit 是一个购物篮关联分析工具包（Association Kit）。
//
// 设计要点：
// - FP-Growth: 两遍扫描构建 FP-Tree，条件模式基递归挖掘，结果与 Apriori 完全一致
// - Rules: 每个频繁项集枚举前件，计算 confidence / lift / leverage / conviction
// - Snapshot-first: 每轮挖掘产出不可变快照，整体原子替换，读者无锁
// - Pipeline 集成: 规则作为 Recall 节点接入 Recall → Filter → ReRank 流水线
package assockit

import (
	"github.com/rushteam/assockit/engine"
	"github.com/rushteam/assockit/pipeline"
)

// 轻量 facade：便于用户直接 import "assockit" 使用核心抽象。
type Engine = engine.Engine
type Snapshot = engine.Snapshot
type Params = engine.Params

type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)

// New 创建 Engine，见 engine.New。
func New(opts ...engine.Option) *Engine { return engine.New(opts...) }
