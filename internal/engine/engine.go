// Package engine drives the per-tick trading decision cycle: risk checks
// first, then strategy signals, then ledger mutations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crossbot/internal/config"
	"crossbot/internal/execution"
	"crossbot/internal/metrics"
	"crossbot/internal/paper"
	"crossbot/internal/risk"
	"crossbot/internal/signal"
	"crossbot/internal/strategy"
)

// Extra candles fetched beyond the long window so the first live observation
// already has a previous-step comparison available.
const warmupExtra = 10

// Asset balances at or below this are treated as flat (nothing to sell).
const dustThreshold = 1e-6

// PriceFeed is the market data collaborator the engine consumes. Both
// operations surface failures as recoverable, tick-local errors.
type PriceFeed interface {
	Run(ctx context.Context, out chan<- signal.Tick) error
	RecentCloses(ctx context.Context, limit int) ([]float64, error)
}

// Engine owns one ledger and one strategy instance for the run and processes
// one tick fully before the next. No locking: the tick loop is the sole
// mutator of both.
type Engine struct {
	cfg    *config.Config
	ledger *paper.Ledger
	strat  strategy.Strategy
	exec   *execution.Executor
	limits risk.Limits
	feed   PriceFeed
	log    zerolog.Logger
}

// New wires the orchestrator. The ledger and strategy must not be shared with
// any other goroutine once handed over.
func New(cfg *config.Config, ledger *paper.Ledger, strat strategy.Strategy, exec *execution.Executor, limits risk.Limits, feed PriceFeed, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		ledger: ledger,
		strat:  strat,
		exec:   exec,
		limits: limits,
		feed:   feed,
		log:    log,
	}
}

// Run warms the strategy from recent history, then processes ticks until the
// context is canceled. A failed bootstrap degrades to an empty history rather
// than aborting; live observations fill it back up.
func (e *Engine) Run(ctx context.Context) error {
	warmup := e.cfg.Trading.LongWindow + warmupExtra
	closes, err := e.feed.RecentCloses(ctx, warmup)
	if err != nil {
		e.log.Warn().Err(err).Msg("history bootstrap failed, starting with empty history")
	} else {
		e.strat.SeedHistory(closes)
		e.log.Info().Int("candles", len(closes)).Str("strategy", e.strat.Name()).Msg("strategy history loaded")
	}

	ticks := make(chan signal.Tick, 64)
	feedDone := make(chan error, 1)
	go func() {
		feedDone <- e.feed.Run(ctx, ticks)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-feedDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("price feed stopped: %w", err)
			}
			return nil
		case tk := <-ticks:
			e.ProcessTick(tk.Price)
		}
	}
}

// ProcessTick runs the full decision procedure for one price observation.
// Risk-triggered liquidation and signal-driven evaluation are mutually
// exclusive within a tick, with no memory of which branch fired previously.
func (e *Engine) ProcessTick(price float64) {
	if price <= 0 {
		e.log.Warn().Float64("price", price).Msg("ignoring non-positive price")
		return
	}

	equity := e.ledger.TotalEquity(price)
	metrics.Equity.WithLabelValues(e.cfg.Trading.Pair).Set(equity)
	e.log.Info().Float64("price", price).Float64("equity", equity).Msg("tick")

	if positions := e.ledger.Positions(); len(positions) > 0 {
		if trigger, pctChange := e.limits.Assess(positions, price); trigger != risk.TriggerNone {
			evt := e.log.Info()
			if trigger == risk.TriggerStopLoss {
				evt = e.log.Warn()
			}
			evt.Str("trigger", trigger.String()).Float64("pct_change", pctChange).Msg("risk liquidation")
			metrics.RiskTriggersTotal.WithLabelValues(trigger.String()).Inc()

			// The history still grows by one per tick; only the signal-driven
			// action is suppressed when risk wins the tick.
			e.strat.Observe(price)
			e.liquidate(price)
			return
		}
	}

	switch e.strat.Observe(price) {
	case signal.Buy:
		e.enterLong(price)
	case signal.Sell:
		e.liquidate(price)
	}
}

// enterLong commits a configured fraction of current cash, subject to the
// minimum order floor.
func (e *Engine) enterLong(price float64) {
	spend := e.ledger.CashBalance() * e.cfg.Trading.BuyFraction
	if !e.limits.Allow(spend) {
		e.log.Warn().Float64("spend", spend).Float64("floor", e.limits.MinOrderNotional).Msg("buy skipped: below minimum order notional")
		metrics.OrderRejectionsTotal.WithLabelValues("min_notional").Inc()
		return
	}
	order := execution.Order{
		Pair:  e.cfg.Trading.Pair,
		Side:  execution.Buy,
		Qty:   spend / price,
		Price: price,
		Ts:    time.Now().UTC(),
	}
	if err := e.exec.Execute(order); err != nil {
		e.log.Warn().Err(err).Msg("buy rejected")
		metrics.OrderRejectionsTotal.WithLabelValues("ledger").Inc()
	}
}

// liquidate sells the full asset balance; a flat book is a no-op.
func (e *Engine) liquidate(price float64) {
	qty := e.ledger.AssetBalance()
	if qty <= dustThreshold {
		return
	}
	order := execution.Order{
		Pair:  e.cfg.Trading.Pair,
		Side:  execution.Sell,
		Qty:   qty,
		Price: price,
		Ts:    time.Now().UTC(),
	}
	if err := e.exec.Execute(order); err != nil {
		e.log.Warn().Err(err).Msg("sell rejected")
		metrics.OrderRejectionsTotal.WithLabelValues("ledger").Inc()
	}
}
