// Package exchange hosts market data connectors for the traded pair.
package exchange

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"crossbot/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance polls the Binance REST ticker at a fixed cadence.
	ProviderBinance = "binance"
	// ProviderBinanceWS streams live trades from Binance public websockets.
	ProviderBinanceWS = "binance-ws"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBaseURL      = "https://api.binance.com"
)

// Feed represents a pluggable price stream for a single pair. Every provider
// pushes ticks onto a channel; the REST endpoints additionally serve the
// bootstrap history fetch.
type Feed struct {
	provider     string
	pair         string
	interval     string
	log          zerolog.Logger
	pollInterval time.Duration
	baseURL      string
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithPollInterval overrides the default polling cadence for the REST provider.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithBaseURL overrides the REST base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(f *Feed) {
		if baseURL != "" {
			f.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, pair, interval string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderBinance
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		pair:         strings.ToUpper(strings.TrimSpace(pair)),
		interval:     interval,
		log:          log,
		pollInterval: defaultPollInterval,
		baseURL:      defaultBaseURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.breaker = newBreaker(f.provider)
	return f
}

// Pair returns the tracked pair symbol.
func (f *Feed) Pair() string { return f.pair }

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderBinanceWS:
		return f.runStream(ctx, out)
	case ProviderStub:
		return f.runStub(ctx, out)
	default:
		return f.runPoller(ctx, out)
	}
}

// newBreaker trips after 3 consecutive failures, or after a 5% failure rate
// once 20 requests have been seen in the rolling interval.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return gobreaker.NewCircuitBreaker(st)
}
