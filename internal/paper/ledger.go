// Package paper simulates a single-pair trading account entirely in memory.
package paper

import (
	"errors"
	"time"
)

// Balances within epsilon of zero are treated as empty.
const epsilon = 1e-6

var (
	// ErrInvalidOrder rejects orders with a non-positive price or quantity.
	ErrInvalidOrder = errors.New("price and quantity must be positive")
	// ErrInsufficientFunds rejects buys whose cost exceeds the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientAsset rejects sells larger than the asset balance.
	ErrInsufficientAsset = errors.New("insufficient asset balance")
)

// Position is one opened lot. It is never mutated after creation; a full
// liquidation removes it from the ledger wholesale.
type Position struct {
	EntryPrice float64
	Quantity   float64
	OpenedAt   time.Time
}

// Ledger tracks the simulated cash and asset balances plus the open positions
// behind them, and is the only component allowed to change either balance.
// The engine's tick loop owns the ledger exclusively, so there is no lock.
type Ledger struct {
	cash      float64
	asset     float64
	positions []Position
}

// NewLedger returns a ledger holding the initial cash balance and no asset.
func NewLedger(initialBalance float64) *Ledger {
	return &Ledger{cash: initialBalance}
}

// PlaceBuy debits price*quantity from cash, credits the asset balance, and
// opens a new position. A rejected order leaves the ledger untouched.
func (l *Ledger) PlaceBuy(price, quantity float64) error {
	if price <= 0 || quantity <= 0 {
		return ErrInvalidOrder
	}
	cost := price * quantity
	if cost > l.cash {
		return ErrInsufficientFunds
	}
	l.cash -= cost
	l.asset += quantity
	l.positions = append(l.positions, Position{
		EntryPrice: price,
		Quantity:   quantity,
		OpenedAt:   time.Now().UTC(),
	})
	return nil
}

// PlaceSell credits price*quantity to cash and debits the asset balance.
// Partial sells do not reduce individual positions; the position list is
// cleared in one sweep once the asset balance reaches (approximately) zero.
// That bookkeeping is coupled to the engine's all-or-nothing sell policy and
// would need rework before any caller sells partial quantities while keeping
// multiple positions open.
func (l *Ledger) PlaceSell(price, quantity float64) error {
	if price <= 0 || quantity <= 0 {
		return ErrInvalidOrder
	}
	if quantity > l.asset {
		return ErrInsufficientAsset
	}
	l.cash += price * quantity
	l.asset -= quantity
	if l.asset <= epsilon {
		l.positions = l.positions[:0]
	}
	return nil
}

// TotalEquity values the account at the given price: cash plus the asset
// balance marked to market. Pure; no side effects.
func (l *Ledger) TotalEquity(currentPrice float64) float64 {
	return l.cash + l.asset*currentPrice
}

// CashBalance returns the free cash available for new buys.
func (l *Ledger) CashBalance() float64 { return l.cash }

// AssetBalance returns the currently held asset quantity.
func (l *Ledger) AssetBalance() float64 { return l.asset }

// Positions returns a copy of the open positions in open order.
func (l *Ledger) Positions() []Position {
	out := make([]Position, len(l.positions))
	copy(out, l.positions)
	return out
}
