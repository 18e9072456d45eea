package filter

import (
	"context"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/pkg/dsl"
)

// ExpressionFilter 用 CEL 表达式过滤候选，表达式为 true 时过滤。
//
// 可用变量：item（id / score / features / meta / labels）、label、rctx（basket / scene / params）。
// 例如：item.features.lift < 1.0 || label.recall_source == "recall.similarity"
type ExpressionFilter struct {
	Expr string
	prg  *dsl.Program
}

// NewExpressionFilter 编译表达式并创建过滤器。
func NewExpressionFilter(expr string) (*ExpressionFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExpressionFilter{Expr: expr, prg: prg}, nil
}

func (f *ExpressionFilter) Name() string {
	return "filter.expression"
}

func (f *ExpressionFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.prg == nil {
		return dsl.NewEval(item, rctx).Evaluate(f.Expr)
	}
	return dsl.NewEval(item, rctx).Run(f.prg)
}
