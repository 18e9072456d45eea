package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/rules"
)

// codecVersion 是持久化格式版本，格式不兼容时递增。
const codecVersion = 1

type snapshotDTO struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Items     []string     `json:"items"` // 按 Item 标识排列的商品名称
	Total     int          `json:"total"`
	Params    Params       `json:"params"`
	Itemsets  []itemsetDTO `json:"itemsets"`
	Rules     []ruleDTO    `json:"rules"`
}

type itemsetDTO struct {
	Items []mining.Item `json:"i"`
	Count int           `json:"c"`
}

type ruleDTO struct {
	Antecedent        []mining.Item `json:"a"`
	Consequent        []mining.Item `json:"c"`
	AntecedentSupport float64       `json:"as"`
	ConsequentSupport float64       `json:"cs"`
	Support           float64       `json:"s"`
	Confidence        float64       `json:"conf"`
	Lift              float64       `json:"lift"`
	Leverage          float64       `json:"lev"`
	Conviction        *float64      `json:"conv"` // null 表示 +Inf
}

// EncodeSnapshot 把快照编码为 JSON。
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, core.PreconditionError(core.ModuleEngine, "no snapshot to encode", "snapshot", nil)
	}
	ids := make([]mining.Item, s.Interner.Len())
	for i := range ids {
		ids[i] = mining.Item(i)
	}

	dto := snapshotDTO{
		Version:   codecVersion,
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Items:     s.Interner.Names(ids),
		Total:     s.Total,
		Params:    s.Params,
		Itemsets:  make([]itemsetDTO, 0, len(s.Itemsets)),
		Rules:     make([]ruleDTO, 0, s.Rules.Len()),
	}
	for _, set := range s.Itemsets {
		dto.Itemsets = append(dto.Itemsets, itemsetDTO{Items: set.Items, Count: set.Count})
	}
	for _, r := range s.Rules.Rules() {
		dto.Rules = append(dto.Rules, ruleDTO{
			Antecedent:        r.Antecedent,
			Consequent:        r.Consequent,
			AntecedentSupport: r.AntecedentSupport,
			ConsequentSupport: r.ConsequentSupport,
			Support:           r.Support,
			Confidence:        r.Confidence,
			Lift:              r.Lift,
			Leverage:          r.Leverage,
			Conviction:        finite(r.Conviction),
		})
	}
	return json.Marshal(dto)
}

// DecodeSnapshot 从 JSON 重建快照，并校验所有标识都在字典范围内。
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if dto.Version != codecVersion {
		return nil, core.InvalidInputError(core.ModuleEngine, "unsupported snapshot version", "version", dto.Version)
	}
	if dto.Total <= 0 {
		return nil, core.InvalidInputError(core.ModuleEngine, "snapshot total must be positive", "total", dto.Total)
	}

	in := mining.NewInterner()
	for _, name := range dto.Items {
		in.Intern(name)
	}
	if in.Len() != len(dto.Items) {
		return nil, core.InvalidInputError(core.ModuleEngine, "snapshot items are not unique", "items", len(dto.Items))
	}
	valid := func(items []mining.Item) bool {
		for _, it := range items {
			if it < 0 || int(it) >= in.Len() {
				return false
			}
		}
		return len(items) > 0
	}

	itemsets := make([]mining.Itemset, 0, len(dto.Itemsets))
	for _, set := range dto.Itemsets {
		if !valid(set.Items) {
			return nil, core.InvalidInputError(core.ModuleEngine, "itemset references unknown item", "itemset", mining.Key(set.Items))
		}
		itemsets = append(itemsets, mining.Itemset{
			Items:   set.Items,
			Count:   set.Count,
			Support: float64(set.Count) / float64(dto.Total),
		})
	}
	mining.SortItemsets(itemsets)

	rs := make([]rules.Rule, 0, len(dto.Rules))
	for _, r := range dto.Rules {
		if !valid(r.Antecedent) || !valid(r.Consequent) {
			return nil, core.InvalidInputError(core.ModuleEngine, "rule references unknown item", "rule", mining.Key(r.Antecedent))
		}
		conviction := math.Inf(1)
		if r.Conviction != nil {
			conviction = *r.Conviction
		}
		rs = append(rs, rules.Rule{
			Antecedent:        r.Antecedent,
			Consequent:        r.Consequent,
			AntecedentSupport: r.AntecedentSupport,
			ConsequentSupport: r.ConsequentSupport,
			Support:           r.Support,
			Confidence:        r.Confidence,
			Lift:              r.Lift,
			Leverage:          r.Leverage,
			Conviction:        conviction,
		})
	}
	ruleSet := rules.RestoreRuleSet(rs, rules.Metric(dto.Params.Metric), dto.Params.MinThreshold)

	return &Snapshot{
		ID:        dto.ID,
		CreatedAt: dto.CreatedAt,
		Interner:  in,
		Itemsets:  itemsets,
		Rules:     ruleSet,
		Total:     dto.Total,
		Params:    dto.Params,
		Stats:     computeStats(itemsets, ruleSet, dto.Params),
	}, nil
}
