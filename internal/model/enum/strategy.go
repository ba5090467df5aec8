package enum

// StrategyKind covered call, vertical spread, straddle, strangle
type StrategyKind uint8

const (
	_strategy_kind_beg StrategyKind = iota
	StrategyKindCoveredCall
	StrategyKindVerticalSpread
	StrategyKindStraddle
	StrategyKindStrangle
	_strategy_kind_end
)

func (k StrategyKind) IsAvailable() bool {
	return k > _strategy_kind_beg && k < _strategy_kind_end
}

func (k StrategyKind) String() string {
	switch k {
	case StrategyKindCoveredCall:
		return "covered_call"
	case StrategyKindVerticalSpread:
		return "vertical_spread"
	case StrategyKindStraddle:
		return "straddle"
	case StrategyKindStrangle:
		return "strangle"
	default:
		return "unknown"
	}
}
