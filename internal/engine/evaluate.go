package engine

import (
	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

// Evaluate applies one strategy's filters to one parsed signal set. Pure
// and total; short-circuits in a fixed order (age, first-buy, balance,
// transactions, label). Filters are opt-in: an absent filter always
// passes, a present filter with an unknown signal fails.
func Evaluate(strat strategy.Strategy, fields signal.Fields, ageMinutes float64) bool {
	filters := strat.Filters
	if !rangePasses(filters.TokenAge, &ageMinutes) {
		return false
	}
	if !rangePasses(filters.FirstBuy, fields.FirstBuyPct) {
		return false
	}
	if !rangePasses(filters.Balance, fields.BalanceSOL) {
		return false
	}
	if !rangePasses(filters.Tx, intAsFloat(fields.TxCount)) {
		return false
	}
	return labelPasses(filters.Label, fields.Label)
}

// rangePasses: inclusive on both ends; nil range passes, nil value fails.
func rangePasses(r *strategy.Range, value *float64) bool {
	if r == nil {
		return true
	}
	if value == nil {
		return false
	}
	return r.From <= *value && *value <= r.To
}

// labelPasses: an absent or wildcard expectation always passes, even when
// no label was detected.
func labelPasses(expected, detected string) bool {
	if expected == "" || expected == strategy.LabelAny {
		return true
	}
	return expected == detected
}

func intAsFloat(value *int) *float64 {
	if value == nil {
		return nil
	}
	converted := float64(*value)
	return &converted
}
