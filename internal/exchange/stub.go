package exchange

import (
	"context"
	"time"

	"crossbot/internal/metrics"
	"crossbot/internal/signal"
)

const (
	stubStartPrice = 100.0
	stubStep       = 0.1
)

// runStub emits a deterministic upward price ramp. Handy for tests and for
// exercising the full decision loop without network access.
func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	px := stubStartPrice
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += stubStep
			tick := signal.Tick{Pair: f.pair, Price: px, Ts: ts}
			select {
			case out <- tick:
				metrics.TicksTotal.WithLabelValues(f.pair).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// stubCloses synthesizes a flat warm-up history ending at the stub's starting
// price so the crossover strategy boots from a neutral state.
func stubCloses(limit int) []float64 {
	if limit <= 0 {
		return nil
	}
	closes := make([]float64, limit)
	for i := range closes {
		closes[i] = stubStartPrice
	}
	return closes
}
