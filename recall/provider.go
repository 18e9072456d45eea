package recall

import (
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/rules"
)

// RuleProvider 提供当前生效的规则集及其商品字典。
// 两者必须来自同一次挖掘：规则里的 Item 只在对应的 Interner 中有意义。
// engine.Engine 实现此接口；尚无规则时返回 (nil, nil)。
type RuleProvider interface {
	RuleSet() (*mining.Interner, *rules.RuleSet)
}

// StaticRules 是固定规则集的 RuleProvider，适用于测试与离线场景。
type StaticRules struct {
	Interner *mining.Interner
	Rules    *rules.RuleSet
}

func (s *StaticRules) RuleSet() (*mining.Interner, *rules.RuleSet) {
	if s == nil {
		return nil, nil
	}
	return s.Interner, s.Rules
}
