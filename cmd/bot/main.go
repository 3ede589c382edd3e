package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/exchange"
	"crossbot/internal/execution"
	"crossbot/internal/metrics"
	"crossbot/internal/paper"
	"crossbot/internal/risk"
	"crossbot/internal/strategy"
	"crossbot/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	_ = godotenv.Load() // best-effort

	cfgPath := os.Getenv("CROSSBOT_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			lg := util.NewLogger("info")
			lg.Fatal().Err(err).Msg("load config")
		}
		cfg = config.Default()
	}

	log := util.NewLogger(cfg.App.LogLevel)
	if err != nil {
		log.Info().Str("path", cfgPath).Msg("no config file found, using defaults")
	} else {
		log.Info().Str("path", cfgPath).Msg("config loaded")
	}

	srv := metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := exchange.NewFeed(
		cfg.Feed.Provider,
		cfg.Trading.Pair,
		cfg.Trading.Interval,
		log,
		exchange.WithBaseURL(cfg.Feed.BaseURL),
		exchange.WithPollInterval(time.Duration(cfg.Feed.PollIntervalMs)*time.Millisecond),
	)

	ledger := paper.NewLedger(cfg.Trading.InitialBalance)
	strat := strategy.NewSMACross(cfg.Trading.ShortWindow, cfg.Trading.LongWindow)
	journal := paper.NewJournal(cfg.Paper.JournalCapacity)
	recorder, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Paper.FillsPath).Msg("open fills recorder")
	}
	exec := execution.NewExecutor(ledger, log, journal, recorder)
	limits := risk.Limits{
		StopLossPct:      cfg.Trading.StopLossPct,
		TakeProfitPct:    cfg.Trading.TakeProfitPct,
		MinOrderNotional: cfg.Trading.MinOrderNotional,
	}

	eng := engine.New(cfg, ledger, strat, exec, limits, feed, log)

	log.Info().
		Str("pair", cfg.Trading.Pair).
		Int("short", cfg.Trading.ShortWindow).
		Int("long", cfg.Trading.LongWindow).
		Float64("balance", cfg.Trading.InitialBalance).
		Msg("paper trading engine started")

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("engine stopped")
	}

	if err := recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close fills recorder")
	}
	_ = srv.Close()
	log.Info().Int("fills", len(journal.Snapshot())).Msg("shutdown complete")
}
