// Package engine 编排 挖掘 → 规则 → 推荐，并以不可变快照对外提供服务。
//
// 写入（MineItemsets / GenerateRules / Analyze / Restore）串行执行，每次构建一个
// 全新的快照，通过一次原子指针替换安装；读取方看到的要么是旧快照，要么是新快照。
// 任一阶段失败时旧快照保持可用。
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/pkg/dsl"
	"github.com/rushteam/assockit/pkg/logging"
	"github.com/rushteam/assockit/pkg/metrics"
	"github.com/rushteam/assockit/recall"
	"github.com/rushteam/assockit/rules"
)

// DefaultSnapshotKey 是快照在 Store 中的默认 key。
const DefaultSnapshotKey = "assockit:snapshot"

// Engine 持有当前快照，并发安全。
type Engine struct {
	log     zerolog.Logger
	store   core.Store
	key     string
	workers int

	mu      sync.Mutex // 串行化写入
	current atomic.Pointer[Snapshot]
}

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 设置 logger，默认使用 logging.Logger()。
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithStore 每次安装快照后写入 store 的 key（整体覆盖），Restore 从同一 key 读回。
func WithStore(s core.Store, key string) Option {
	return func(e *Engine) {
		e.store = s
		if key != "" {
			e.key = key
		}
	}
}

// WithWorkers 设置条件树挖掘的并发度，<= 0 表示 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New 创建 Engine。
func New(opts ...Option) *Engine {
	e := &Engine{
		log: logging.Logger(),
		key: DefaultSnapshotKey,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("component", "engine").Logger()
	return e
}

// Snapshot 返回当前快照，尚未挖掘时为 nil。
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// RuleSet 实现 recall.RuleProvider，两者取自同一个快照。
func (e *Engine) RuleSet() (*mining.Interner, *rules.RuleSet) {
	s := e.current.Load()
	if s == nil {
		return nil, nil
	}
	return s.Interner, s.Rules
}

var _ recall.RuleProvider = (*Engine)(nil)

// MineItemsets 挖掘频繁项集，安装一个只含项集（规则为空）的新快照。
func (e *Engine) MineItemsets(ctx context.Context, m mining.Matrix, minSupport float64) (snap *Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.RecordRun(err) }()

	res, err := e.mine(ctx, m, minSupport)
	if err != nil {
		return nil, err
	}
	p := Params{MinSupport: minSupport}
	snap = e.newSnapshot(res.Interner, res.Itemsets, rules.NewRuleSet(nil), res.Total, p)
	if err := e.install(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// GenerateRules 基于当前快照的项集生成规则，安装替换后的快照。
// 尚未挖掘时返回 PRECONDITION。
func (e *Engine) GenerateRules(ctx context.Context, metric string, minThreshold float64) (snap *Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.RecordRun(err) }()

	cur := e.current.Load()
	if cur == nil || len(cur.Itemsets) == 0 {
		return nil, core.PreconditionError(core.ModuleEngine, "frequent itemsets must be mined first", "snapshot", nil)
	}
	rs, err := e.rules(cur.Itemsets, cur.Total, metric, minThreshold)
	if err != nil {
		return nil, err
	}
	p := cur.Params
	p.Metric = string(rs.Metric())
	p.MinThreshold = minThreshold
	snap = e.newSnapshot(cur.Interner, cur.Itemsets, rs, cur.Total, p)
	if err := e.install(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Analyze 依次执行挖掘与规则生成，只安装最终快照。
// Params 中未设置的 Metric 默认为 confidence。
func (e *Engine) Analyze(ctx context.Context, m mining.Matrix, p Params) (snap *Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.RecordRun(err) }()

	if p.Metric == "" {
		p.Metric = string(rules.MetricConfidence)
	}
	res, err := e.mine(ctx, m, p.MinSupport)
	if err != nil {
		return nil, err
	}
	rs, err := e.rules(res.Itemsets, res.Total, p.Metric, p.MinThreshold)
	if err != nil {
		return nil, err
	}
	p.Metric = string(rs.Metric())
	snap = e.newSnapshot(res.Interner, res.Itemsets, rs, res.Total, p)
	if err := e.install(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore 从 Store 读回快照并安装，不再回写。
// 未配置 Store 时返回 PRECONDITION；key 不存在时返回 store 的 NOT_FOUND。
func (e *Engine) Restore(ctx context.Context) (snap *Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return nil, core.PreconditionError(core.ModuleEngine, "no store configured", "store", nil)
	}
	defer metrics.ObserveStage("restore", time.Now())

	data, err := e.store.Get(ctx, e.key)
	if err != nil {
		return nil, err
	}
	snap, err = DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	e.swap(snap)
	e.log.Info().
		Str("snapshot", snap.ID).
		Str("store", e.store.Name()).
		Int("itemsets", len(snap.Itemsets)).
		Int("rules", snap.Rules.Len()).
		Msg("snapshot restored")
	return snap, nil
}

func (e *Engine) mine(ctx context.Context, m mining.Matrix, minSupport float64) (*mining.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer metrics.ObserveStage("mine", start)

	var opts []mining.MineOption
	if e.workers > 0 {
		opts = append(opts, mining.WithWorkers(e.workers))
	}
	res, err := mining.FindFrequentItemsets(m, minSupport, opts...)
	if err != nil {
		e.log.Debug().Err(err).Float64("min_support", minSupport).Msg("mining failed")
		return nil, err
	}
	e.log.Debug().
		Int("transactions", res.Total).
		Int("min_count", res.MinCount).
		Int("itemsets", len(res.Itemsets)).
		Dur("took", time.Since(start)).
		Msg("frequent itemsets mined")
	return res, nil
}

func (e *Engine) rules(itemsets []mining.Itemset, total int, metric string, minThreshold float64) (*rules.RuleSet, error) {
	start := time.Now()
	defer metrics.ObserveStage("rules", start)

	rs, err := rules.Generate(itemsets, total, rules.Metric(metric), minThreshold)
	if err != nil {
		e.log.Debug().Err(err).Str("metric", metric).Float64("min_threshold", minThreshold).Msg("rule generation failed")
		return nil, err
	}
	e.log.Debug().
		Str("metric", string(rs.Metric())).
		Int("rules", rs.Len()).
		Dur("took", time.Since(start)).
		Msg("association rules generated")
	return rs, nil
}

func (e *Engine) newSnapshot(in *mining.Interner, itemsets []mining.Itemset, rs *rules.RuleSet, total int, p Params) *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Interner:  in,
		Itemsets:  itemsets,
		Rules:     rs,
		Total:     total,
		Params:    p,
		Stats:     computeStats(itemsets, rs, p),
	}
}

// install 先持久化再替换；持久化失败时不替换。
func (e *Engine) install(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.persist(ctx, snap); err != nil {
			e.log.Warn().Err(err).Str("snapshot", snap.ID).Msg("snapshot not installed")
			return err
		}
	}
	e.swap(snap)
	e.log.Info().
		Str("snapshot", snap.ID).
		Int("itemsets", len(snap.Itemsets)).
		Int("rules", snap.Rules.Len()).
		Msg("snapshot installed")
	return nil
}

func (e *Engine) persist(ctx context.Context, snap *Snapshot) error {
	defer metrics.ObserveStage("persist", time.Now())
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := e.store.Set(ctx, e.key, data); err != nil {
		return fmt.Errorf("persist snapshot to %s: %w", e.store.Name(), err)
	}
	return nil
}

func (e *Engine) swap(snap *Snapshot) {
	e.current.Store(snap)
	metrics.RecordSnapshot(len(snap.Itemsets), snap.Rules.Len())
}

// TopItemsets 见 Snapshot.TopItemsets。
func (e *Engine) TopItemsets(n, minLength int) []ItemsetView {
	return e.Snapshot().TopItemsets(n, minLength)
}

// ItemsetsByLength 见 Snapshot.ItemsetsByLength。
func (e *Engine) ItemsetsByLength(k int) []ItemsetView {
	return e.Snapshot().ItemsetsByLength(k)
}

// TopRules 见 Snapshot.TopRules。
func (e *Engine) TopRules(n int, minLift float64) []RuleView {
	return e.Snapshot().TopRules(n, minLift)
}

// RulesForItem 见 Snapshot.RulesForItem。
func (e *Engine) RulesForItem(name string) []RuleView {
	return e.Snapshot().RulesForItem(name)
}

// QueryRules 返回满足 CEL 表达式的前 n 条规则（n <= 0 不截断），例如：
//
//	rule.lift > 1.2 && "bread" in rule.antecedents
func (e *Engine) QueryRules(expr string, n int) ([]RuleView, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	s := e.Snapshot()
	if s == nil {
		return nil, nil
	}

	var out []RuleView
	for _, r := range s.Rules.Rules() {
		v := s.ruleView(r)
		ok, err := prg.Eval(map[string]any{"rule": ruleVars(v)})
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", expr, err)
		}
		if !ok {
			continue
		}
		out = append(out, v)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

func ruleVars(v RuleView) map[string]any {
	return map[string]any{
		"antecedents": toAny(v.Antecedents),
		"consequents": toAny(v.Consequents),
		"support":     v.Support,
		"confidence":  v.Confidence,
		"lift":        v.Lift,
		"leverage":    v.Leverage,
		"conviction":  v.Conviction,
	}
}

func toAny(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// Recommend 按购物篮推荐，未知商品被忽略。
func (e *Engine) Recommend(basket []string, topN int, minConfidence float64) []RecommendationView {
	metrics.RecordRequest("recommend")
	s := e.Snapshot()
	if s == nil {
		return nil
	}
	recs := recall.Recommend(s.Interner.Resolve(basket), s.Rules.Rules(), topN, minConfidence)
	return s.recommendationViews(recs)
}

// FrequentlyBoughtTogether 返回与商品经常一起购买的商品。
func (e *Engine) FrequentlyBoughtTogether(name string, topN int) []TogetherView {
	metrics.RecordRequest("together")
	s := e.Snapshot()
	if s == nil {
		return nil
	}
	id, ok := s.Interner.Lookup(name)
	if !ok {
		return nil
	}
	return s.togetherViews(recall.FrequentlyBoughtTogether(id, s.Rules.Rules(), topN))
}

// RecommendBySimilarity 按累计 lift 推荐与购物篮共现的商品。
func (e *Engine) RecommendBySimilarity(basket []string, topN int) []SimilarView {
	metrics.RecordRequest("similarity")
	s := e.Snapshot()
	if s == nil {
		return nil
	}
	found := recall.RecommendBySimilarity(s.Interner.Resolve(basket), s.Rules.Rules(), topN)
	return s.similarViews(found)
}

// Explain 解释 name 为何基于 basedOn 被推荐；basedOn 含未知商品或没有对应规则时返回 false。
func (e *Engine) Explain(name string, basedOn []string) (ExplanationView, bool) {
	metrics.RecordRequest("explain")
	s := e.Snapshot()
	if s == nil {
		return ExplanationView{}, false
	}
	id, ok := s.Interner.Lookup(name)
	if !ok {
		return ExplanationView{}, false
	}
	for _, b := range basedOn {
		if _, ok := s.Interner.Lookup(b); !ok {
			return ExplanationView{}, false
		}
	}
	ex, ok := recall.Explain(id, s.Interner.Resolve(basedOn), s.Rules.Rules())
	if !ok {
		return ExplanationView{}, false
	}
	return ExplanationView{
		Item:        name,
		BasedOn:     s.Interner.Names(ex.BasedOn),
		Confidence:  ex.Confidence,
		Lift:        ex.Lift,
		Support:     ex.Support,
		Explanation: ex.Sentence(s.Interner),
	}, true
}

// IsNotMined 判断错误是否因为尚未挖掘。
func IsNotMined(err error) bool {
	de := core.GetDomainError(err)
	return de != nil && de.Code == core.ErrorCodePrecondition && de.Module == core.ModuleEngine
}
