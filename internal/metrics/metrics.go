// Package metrics exposes Prometheus instrumentation for the trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of price observations processed"},
		[]string{"pair"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders executed against the paper ledger"},
		[]string{"pair", "side"},
	)
	OrderRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_rejections_total", Help: "Orders rejected before or during settlement"},
		[]string{"reason"},
	)
	RiskTriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "risk_triggers_total", Help: "Stop-loss and take-profit liquidations"},
		[]string{"kind"},
	)
	FeedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_errors_total", Help: "Price feed fetch failures"},
		[]string{"provider"},
	)
	Equity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "equity", Help: "Total account equity marked at the latest price"},
		[]string{"pair"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, OrderRejectionsTotal, RiskTriggersTotal, FeedErrorsTotal, Equity)
}

// Serve exposes /metrics on the given address and returns the server handle.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
