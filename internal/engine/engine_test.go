package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"crossbot/internal/config"
	"crossbot/internal/execution"
	"crossbot/internal/paper"
	"crossbot/internal/risk"
	"crossbot/internal/signal"
	"crossbot/internal/strategy"
)

type fixture struct {
	engine  *Engine
	ledger  *paper.Ledger
	strat   *strategy.SMACross
	journal *paper.Journal
}

func newFixture(t *testing.T, feed PriceFeed, balance float64) fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Trading.ShortWindow = 2
	cfg.Trading.LongWindow = 4
	cfg.Trading.StopLossPct = 0.05
	cfg.Trading.TakeProfitPct = 0.05
	cfg.Trading.InitialBalance = balance

	ledger := paper.NewLedger(balance)
	strat := strategy.NewSMACross(cfg.Trading.ShortWindow, cfg.Trading.LongWindow)
	journal := paper.NewJournal(8)
	exec := execution.NewExecutor(ledger, zerolog.Nop(), journal)
	limits := risk.Limits{
		StopLossPct:      cfg.Trading.StopLossPct,
		TakeProfitPct:    cfg.Trading.TakeProfitPct,
		MinOrderNotional: cfg.Trading.MinOrderNotional,
	}
	eng := New(cfg, ledger, strat, exec, limits, feed, zerolog.Nop())
	return fixture{engine: eng, ledger: ledger, strat: strat, journal: journal}
}

func TestProcessTickBuySignalSpendsHalfCash(t *testing.T) {
	f := newFixture(t, nil, 10000)
	f.strat.SeedHistory([]float64{100, 100, 100, 100})

	f.engine.ProcessTick(101)

	if math.Abs(f.ledger.CashBalance()-5000) > 1e-9 {
		t.Fatalf("expected half the cash spent, got %.2f", f.ledger.CashBalance())
	}
	wantQty := 5000.0 / 101.0
	if math.Abs(f.ledger.AssetBalance()-wantQty) > 1e-9 {
		t.Fatalf("expected qty %.6f, got %.6f", wantQty, f.ledger.AssetBalance())
	}
	fills := f.journal.Snapshot()
	if len(fills) != 1 || fills[0].Side != execution.Buy {
		t.Fatalf("expected one BUY fill, got %+v", fills)
	}
}

func TestProcessTickBuyBelowFloorSkipped(t *testing.T) {
	f := newFixture(t, nil, 15) // half of 15 is below the $10 floor
	f.strat.SeedHistory([]float64{100, 100, 100, 100})

	f.engine.ProcessTick(101)

	if f.ledger.CashBalance() != 15 || f.ledger.AssetBalance() != 0 {
		t.Fatalf("skipped buy must not mutate the ledger")
	}
	if len(f.journal.Snapshot()) != 0 {
		t.Fatalf("skipped buy must not be journaled")
	}
}

func TestProcessTickSellSignalFlatBookNoOps(t *testing.T) {
	f := newFixture(t, nil, 1000)
	f.strat.SeedHistory([]float64{100, 100, 100, 100})

	f.engine.ProcessTick(99) // death cross with nothing to sell

	if f.ledger.CashBalance() != 1000 {
		t.Fatalf("flat-book sell must not mutate cash")
	}
	if len(f.journal.Snapshot()) != 0 {
		t.Fatalf("flat-book sell must not be journaled")
	}
}

func TestProcessTickStopLossBeatsSignal(t *testing.T) {
	f := newFixture(t, nil, 10000)
	if err := f.ledger.PlaceBuy(100, 1); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}
	// A history that would yield a BUY at 94 if the signal were evaluated.
	f.strat.SeedHistory([]float64{93, 93, 93, 93})

	f.engine.ProcessTick(94) // -6% vs entry 100: stop loss wins the tick

	if f.ledger.AssetBalance() > 1e-6 {
		t.Fatalf("expected full liquidation, asset=%.6f", f.ledger.AssetBalance())
	}
	if len(f.ledger.Positions()) != 0 {
		t.Fatalf("expected positions cleared")
	}
	fills := f.journal.Snapshot()
	if len(fills) != 1 || fills[0].Side != execution.Sell {
		t.Fatalf("expected exactly one SELL fill, got %+v", fills)
	}
	wantCash := 10000.0 - 100 + 94
	if math.Abs(f.ledger.CashBalance()-wantCash) > 1e-9 {
		t.Fatalf("expected cash %.2f, got %.2f", wantCash, f.ledger.CashBalance())
	}
	// The price observation still entered the history.
	if f.strat.HistoryLen() != 5 {
		t.Fatalf("expected history to grow on a risk tick, got %d", f.strat.HistoryLen())
	}
}

func TestProcessTickTakeProfitLiquidates(t *testing.T) {
	f := newFixture(t, nil, 10000)
	if err := f.ledger.PlaceBuy(100, 2); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}
	f.strat.SeedHistory([]float64{105, 105, 105, 105})

	f.engine.ProcessTick(106) // +6% vs entry

	if f.ledger.AssetBalance() > 1e-6 {
		t.Fatalf("expected full liquidation, asset=%.6f", f.ledger.AssetBalance())
	}
	fills := f.journal.Snapshot()
	if len(fills) != 1 || fills[0].Side != execution.Sell {
		t.Fatalf("expected one SELL fill, got %+v", fills)
	}
}

func TestProcessTickInsideRiskBandFallsThroughToSignal(t *testing.T) {
	f := newFixture(t, nil, 10000)
	if err := f.ledger.PlaceBuy(100, 1); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}
	f.strat.SeedHistory([]float64{100, 100, 100, 100})

	f.engine.ProcessTick(102) // +2%: inside the band, golden cross fires

	fills := f.journal.Snapshot()
	if len(fills) != 1 || fills[0].Side != execution.Buy {
		t.Fatalf("expected signal-driven BUY, got %+v", fills)
	}
}

func TestProcessTickIgnoresNonPositivePrice(t *testing.T) {
	f := newFixture(t, nil, 1000)
	f.engine.ProcessTick(0)
	if f.strat.HistoryLen() != 0 {
		t.Fatalf("non-positive price must not enter the history")
	}
}

type fakeFeed struct {
	closes    []float64
	closesErr error
	ticks     []signal.Tick
}

func (f *fakeFeed) RecentCloses(ctx context.Context, limit int) ([]float64, error) {
	return f.closes, f.closesErr
}

func (f *fakeFeed) Run(ctx context.Context, out chan<- signal.Tick) error {
	for _, tk := range f.ticks {
		select {
		case out <- tk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunSeedsHistoryAndProcessesTicks(t *testing.T) {
	feed := &fakeFeed{
		closes: []float64{100, 100, 100, 100},
		ticks:  []signal.Tick{{Pair: "BTCUSDT", Price: 101, Ts: time.Now()}},
	}
	f := newFixture(t, feed, 10000)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = f.engine.Run(ctx)

	if f.strat.HistoryLen() != 5 {
		t.Fatalf("expected seeded history plus one tick, got %d", f.strat.HistoryLen())
	}
	fills := f.journal.Snapshot()
	if len(fills) != 1 || fills[0].Side != execution.Buy {
		t.Fatalf("expected golden-cross BUY from the live tick, got %+v", fills)
	}
}

func TestRunBootstrapFailureDegradesToEmptyHistory(t *testing.T) {
	feed := &fakeFeed{
		closesErr: context.DeadlineExceeded,
		ticks:     []signal.Tick{{Pair: "BTCUSDT", Price: 101, Ts: time.Now()}},
	}
	f := newFixture(t, feed, 10000)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = f.engine.Run(ctx)

	if f.strat.HistoryLen() != 1 {
		t.Fatalf("expected only the live observation, got %d", f.strat.HistoryLen())
	}
	if f.ledger.CashBalance() != 10000 {
		t.Fatalf("no trade expected with insufficient history")
	}
}
