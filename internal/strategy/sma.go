package strategy

import "crossbot/internal/signal"

// Compile-time interface check.
var _ Strategy = (*SMACross)(nil)

// SMACross detects golden and death crosses between a short and a long simple
// moving average computed over a rolling close-price history. The history is
// capped at twice the long window once live observations push past it.
type SMACross struct {
	shortWindow int
	longWindow  int
	history     []float64
}

// NewSMACross builds the crossover strategy. Short is expected to be smaller
// than long but this is not enforced here; config validation owns that.
func NewSMACross(shortWindow, longWindow int) *SMACross {
	return &SMACross{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		history:     make([]float64, 0, 2*longWindow),
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// SeedHistory replaces the rolling history wholesale. The 2x long-window cap
// is deliberately not applied here, and Observe evicts at most one element
// per admission, so an oversized warm-up set keeps its length for the rest of
// the run. Callers who want the cap respected must seed at most 2x the long
// window.
func (s *SMACross) SeedHistory(closes []float64) {
	s.history = append(s.history[:0], closes...)
}

// HistoryLen reports the current number of buffered observations.
func (s *SMACross) HistoryLen() int { return len(s.history) }

// Observe appends one price and reports whether the averages crossed on this
// observation. The previous-step averages are recomputed by re-slicing the
// buffer rather than cached, so the history stays the single source of truth.
func (s *SMACross) Observe(price float64) signal.Signal {
	s.history = append(s.history, price)
	if len(s.history) > 2*s.longWindow {
		s.history = s.history[1:]
	}

	if len(s.history) < s.longWindow {
		return signal.None
	}

	shortSMA := s.smaAt(s.shortWindow, 0)
	longSMA := s.smaAt(s.longWindow, 0)

	// Crossover detection needs the previous step's relationship too.
	if len(s.history) < s.longWindow+1 {
		return signal.None
	}

	prevShortSMA := s.smaAt(s.shortWindow, 1)
	prevLongSMA := s.smaAt(s.longWindow, 1)

	if prevShortSMA <= prevLongSMA && shortSMA > longSMA {
		return signal.Buy
	}
	if prevShortSMA >= prevLongSMA && shortSMA < longSMA {
		return signal.Sell
	}
	return signal.None
}

// smaAt averages window prices ending offset observations before the latest.
// Returns 0 when the history is too short for that offset; the length guards
// in Observe keep this from affecting emitted signals.
func (s *SMACross) smaAt(window, offset int) float64 {
	if len(s.history) < window+offset {
		return 0
	}
	end := len(s.history) - offset
	var sum float64
	for _, p := range s.history[end-window : end] {
		sum += p
	}
	return sum / float64(window)
}
