package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/assockit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式：expr → *Program
	programs sync.Map
)

// 表达式可引用的顶层变量。
var variables = []string{"item", "label", "rctx", "rule"}

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, v := range variables {
		opts = append(opts, cel.Variable(v, cel.DynType))
	}
	return cel.NewEnv(opts...)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译好的布尔表达式，可并发求值。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式并缓存，相同表达式只编译一次。
//
// 表达式语法（CEL 标准语法）：
//   - 规则：rule.lift > 1.5 && size(rule.antecedents) == 1
//   - 包含："bread" in rule.antecedents
//   - 候选：item.features.confidence >= 0.6 / label.recall_source == "recall.association"
//   - 请求："milk" in rctx.basket
func Compile(expr string) (*Program, error) {
	if p, ok := programs.Load(expr); ok {
		return p.(*Program), nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.InvalidInputError(core.ModuleConfig, "expression does not compile", "expr", expr).Wrap(issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}

	p := &Program{expr: expr, prg: prg}
	programs.Store(expr, p)
	return p, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对输入求值，缺失的顶层变量以空 map 代替，结果必须为布尔值。
func (p *Program) Eval(input map[string]any) (bool, error) {
	vars := make(map[string]any, len(variables))
	for _, v := range variables {
		vars[v] = map[string]any{}
	}
	for k, v := range input {
		vars[k] = v
	}

	out, _, err := p.prg.Eval(vars)
	if err != nil {
		// 访问不存在的 key 会报错，应先用 has(label.key) 判断
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Eval 是候选物品上的 DSL 解释器。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
}

// NewEval 创建一个针对单个候选物品的解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	return &Eval{item: item, rctx: rctx}
}

// Evaluate 编译（带缓存）并执行表达式；空表达式恒为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return e.Run(p)
}

// Run 执行已编译的表达式。
func (e *Eval) Run(p *Program) (bool, error) {
	return p.Eval(e.buildInput())
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	item := map[string]any{}
	if e.item != nil {
		for k, v := range e.item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelAccessor[k] = v.Value
		}
		features := make(map[string]any, len(e.item.Features))
		for k, v := range e.item.Features {
			features[k] = v
		}
		meta := make(map[string]any, len(e.item.Meta))
		for k, v := range e.item.Meta {
			meta[k] = v
		}
		item = map[string]any{
			"id":       e.item.ID,
			"score":    e.item.Score,
			"features": features,
			"meta":     meta,
			"labels":   labels,
		}
	}

	rctx := map[string]any{"basket": []any{}, "scene": "", "params": map[string]any{}}
	if e.rctx != nil {
		basket := make([]any, len(e.rctx.Basket))
		for i, b := range e.rctx.Basket {
			basket[i] = b
		}
		params := make(map[string]any, len(e.rctx.Params))
		for k, v := range e.rctx.Params {
			params[k] = v
		}
		rctx = map[string]any{"basket": basket, "scene": e.rctx.Scene, "params": params}
	}

	return map[string]any{
		"item":  item,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
