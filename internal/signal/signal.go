// Package signal standardizes payloads shared between data ingestion and strategy layers.
package signal

import "time"

// Tick models one price observation for the traded pair.
type Tick struct {
	Pair  string
	Price float64
	Ts    time.Time
}

// Signal expresses the directional bias produced by a strategy for one tick.
type Signal int

const (
	// None means the strategy sees no actionable crossover this tick.
	None Signal = iota
	// Buy is emitted on a golden cross (short SMA moves above long SMA).
	Buy
	// Sell is emitted on a death cross (short SMA moves below long SMA).
	Sell
)

// String returns the order-side style label for the signal.
func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}
