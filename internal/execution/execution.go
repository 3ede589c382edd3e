// Package execution settles orders against the paper ledger and fans out fills.
package execution

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crossbot/internal/metrics"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a liquidating order.
	Sell Side = "SELL"
)

// Order represents a placement request the executor can process.
type Order struct {
	Pair  string
	Side  Side
	Qty   float64
	Price float64
	Ts    time.Time
}

// Fill records one simulated execution against the ledger.
type Fill struct {
	Pair     string    `json:"pair"`
	Side     Side      `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	Notional float64   `json:"notional"`
	Ts       time.Time `json:"ts"`
}

// Book is the balance ledger that orders settle against.
type Book interface {
	PlaceBuy(price, quantity float64) error
	PlaceSell(price, quantity float64) error
}

// FillRecorder captures fills for later inspection.
type FillRecorder interface {
	Record(Fill)
}

// Executor applies orders to the book and reports each successful fill to the
// configured recorders.
type Executor struct {
	book      Book
	log       zerolog.Logger
	recorders []FillRecorder
}

// NewExecutor wires a book, a logger, and any number of fill recorders.
func NewExecutor(book Book, log zerolog.Logger, recorders ...FillRecorder) *Executor {
	return &Executor{book: book, log: log, recorders: recorders}
}

// Execute settles the order against the book. Ledger rejections are returned
// untouched so the caller can classify them; nothing is recorded or logged
// for a rejected order.
func (e *Executor) Execute(order Order) error {
	var err error
	switch order.Side {
	case Buy:
		err = e.book.PlaceBuy(order.Price, order.Qty)
	case Sell:
		err = e.book.PlaceSell(order.Price, order.Qty)
	default:
		return fmt.Errorf("unknown order side: %s", order.Side)
	}
	if err != nil {
		return err
	}

	fill := Fill{
		Pair:     order.Pair,
		Side:     order.Side,
		Qty:      order.Qty,
		Price:    order.Price,
		Notional: order.Price * order.Qty,
		Ts:       order.Ts,
	}
	metrics.OrdersTotal.WithLabelValues(fill.Pair, string(fill.Side)).Inc()
	for _, recorder := range e.recorders {
		recorder.Record(fill)
	}
	e.log.Info().
		Str("pair", fill.Pair).
		Str("side", string(fill.Side)).
		Float64("qty", fill.Qty).
		Float64("px", fill.Price).
		Float64("notional", fill.Notional).
		Msg("order executed")
	return nil
}
