// Package risk evaluates protective rules ahead of strategy-driven decisions.
package risk

import "crossbot/internal/paper"

// Trigger identifies which protective rule fired for a tick, if any.
type Trigger int

const (
	// TriggerNone means no protective rule fired.
	TriggerNone Trigger = iota
	// TriggerStopLoss fires when the price has fallen past the stop-loss
	// threshold relative to the average entry.
	TriggerStopLoss
	// TriggerTakeProfit fires when the price has risen past the take-profit
	// threshold relative to the average entry.
	TriggerTakeProfit
)

// String returns the snake_case label used in logs and metrics.
func (t Trigger) String() string {
	switch t {
	case TriggerStopLoss:
		return "stop_loss"
	case TriggerTakeProfit:
		return "take_profit"
	default:
		return "none"
	}
}

// Limits bundles the protective thresholds applied ahead of strategy signals.
// Both pcts are fractions, e.g. 0.02 for 2%.
type Limits struct {
	StopLossPct      float64
	TakeProfitPct    float64
	MinOrderNotional float64
}

// Assess compares the price against the quantity-weighted average entry price
// of the open positions and reports which protective rule fired along with
// the fractional change that drove the decision.
func (l Limits) Assess(positions []paper.Position, price float64) (Trigger, float64) {
	if len(positions) == 0 {
		return TriggerNone, 0
	}
	var totalQty, totalCost float64
	for _, p := range positions {
		totalQty += p.Quantity
		totalCost += p.Quantity * p.EntryPrice
	}
	if totalQty == 0 {
		return TriggerNone, 0
	}
	avgEntry := totalCost / totalQty
	pctChange := (price - avgEntry) / avgEntry

	switch {
	case pctChange <= -l.StopLossPct:
		return TriggerStopLoss, pctChange
	case pctChange >= l.TakeProfitPct:
		return TriggerTakeProfit, pctChange
	}
	return TriggerNone, pctChange
}

// Allow reports whether an order notional clears the minimum size floor.
func (l Limits) Allow(notional float64) bool {
	return notional >= l.MinOrderNotional
}
