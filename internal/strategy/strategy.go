// Package strategy hosts signal-producing trading strategies.
package strategy

import "crossbot/internal/signal"

// Strategy turns a stream of price observations into directional signals.
// Observe must be called exactly once per new observation.
type Strategy interface {
	// Name returns the configured identifier for logging.
	Name() string
	// SeedHistory replaces the rolling history wholesale, typically once at
	// startup to warm up before live evaluation.
	SeedHistory(closes []float64)
	// Observe appends one price and reports the resulting signal.
	Observe(price float64) signal.Signal
}
