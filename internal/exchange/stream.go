package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"crossbot/internal/metrics"
	"crossbot/internal/signal"
)

const wsBaseURL = "wss://stream.binance.com:9443/ws"

type binanceTrade struct {
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// runStream consumes the Binance trade websocket for the pair, reconnecting
// with capped exponential backoff when the connection drops.
func (f *Feed) runStream(ctx context.Context, out chan<- signal.Tick) error {
	if f.pair == "" {
		return fmt.Errorf("websocket feed requires a pair")
	}

	endpoint := fmt.Sprintf("%s/%s@trade", wsBaseURL, strings.ToLower(f.pair))
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeStream(ctx, endpoint, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.FeedErrorsTotal.WithLabelValues(f.provider).Inc()
			f.log.Warn().Err(err).Msg("trade stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeStream(ctx context.Context, endpoint string, out chan<- signal.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", f.provider).Str("pair", f.pair).Msg("connected trade stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var trade binanceTrade
		if err := json.Unmarshal(message, &trade); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode trade message")
			continue
		}
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid price on trade stream")
			continue
		}

		tick := signal.Tick{Pair: f.pair, Price: price, Ts: time.UnixMilli(trade.TradeTime)}
		select {
		case out <- tick:
			metrics.TicksTotal.WithLabelValues(f.pair).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
