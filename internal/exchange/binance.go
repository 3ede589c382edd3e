package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crossbot/internal/metrics"
	"crossbot/internal/signal"
)

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// runPoller fetches the latest ticker price at a fixed cadence and emits one
// tick per successful poll. A failed poll is logged and counted; the loop
// keeps going so a flaky endpoint only costs the ticks it failed on.
func (f *Feed) runPoller(ctx context.Context, out chan<- signal.Tick) error {
	f.log.Info().Str("provider", f.provider).Str("pair", f.pair).Dur("interval", f.pollInterval).Msg("price poller started")

	if err := f.pollOnce(ctx, out, time.Now().UTC()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			if err := f.pollOnce(ctx, out, ts); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (f *Feed) pollOnce(ctx context.Context, out chan<- signal.Tick, ts time.Time) error {
	price, err := f.LatestPrice(ctx)
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues(f.provider).Inc()
		f.log.Warn().Err(err).Msg("price poll failed")
		return err
	}
	select {
	case out <- signal.Tick{Pair: f.pair, Price: price, Ts: ts}:
		metrics.TicksTotal.WithLabelValues(f.pair).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LatestPrice fetches the current ticker price for the pair.
func (f *Feed) LatestPrice(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", f.baseURL, url.QueryEscape(f.pair))
	body, err := f.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	var ticker tickerPrice
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// RecentCloses fetches up to limit close prices for the configured pair and
// interval, oldest first. Malformed kline rows are skipped rather than
// failing the whole fetch. The stub provider synthesizes its warm-up history
// so offline runs still bootstrap.
func (f *Feed) RecentCloses(ctx context.Context, limit int) ([]float64, error) {
	if f.provider == ProviderStub {
		return stubCloses(limit), nil
	}

	endpoint := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		f.baseURL, url.QueryEscape(f.pair), url.QueryEscape(f.interval), limit)
	body, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// Binance kline rows are [openTime, open, high, low, close, volume, ...].
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	closes := make([]float64, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		closeStr, ok := row[4].(string)
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		closes = append(closes, price)
	}
	return closes, nil
}

// get runs the request through the circuit breaker so a dead endpoint
// degrades to fast typed failures instead of piling up timeouts.
func (f *Feed) get(ctx context.Context, endpoint string) ([]byte, error) {
	result, err := f.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
