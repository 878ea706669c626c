package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is one of the two complementary tokens of a binary market.
type Outcome string

// Side is the order direction.
type Side string

// Category distinguishes limit orders from market orders.
type Category string

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"

	SideBuy  Side = "buy"
	SideSell Side = "sell"

	CategoryLimit  Category = "limit"
	CategoryMarket Category = "market"

	StatusPending   OrderStatus = "pending"
	StatusMatched   OrderStatus = "matched"
	StatusCancelled OrderStatus = "cancelled"
)

// Outcomes lists both outcomes in lock order.
var Outcomes = [2]Outcome{OutcomeYes, OutcomeNo}

// CollateralUnit is the value one YES + NO pair is worth.
var CollateralUnit = decimal.NewFromInt(1)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Opposite returns the complementary outcome.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the counterparty side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (c Category) Valid() bool {
	return c == CategoryLimit || c == CategoryMarket
}

// Order is a resting or historical order.
// Price and quantities are exact decimals stored as TEXT so sqlite never coerces them to REAL.
type Order struct {
	ID        string          `gorm:"primaryKey;type:text" json:"id"`
	Owner     string          `gorm:"type:text;not null;index" json:"userAddress"`
	Outcome   Outcome         `gorm:"type:text;not null;index:idx_orders_book,priority:1" json:"tokenType"`
	Side      Side            `gorm:"type:text;not null;index:idx_orders_book,priority:3" json:"orderType"`
	Category  Category        `gorm:"type:text;not null" json:"tradeType"`
	Price     decimal.Decimal `gorm:"type:text;not null" json:"price"`
	Remaining decimal.Decimal `gorm:"type:text;not null" json:"amount"`
	Original  decimal.Decimal `gorm:"type:text;not null" json:"originalAmount"`
	Timestamp int64           `gorm:"not null;index" json:"timestamp"`
	Status    OrderStatus     `gorm:"type:text;not null;index:idx_orders_book,priority:2" json:"status"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// IsPending checks if the order can still be matched or cancelled.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// IsMarket reports whether the order sweeps the book regardless of price.
func (o *Order) IsMarket() bool {
	return o.Category == CategoryMarket
}

// Filled returns the quantity matched so far.
func (o *Order) Filled() decimal.Decimal {
	return o.Original.Sub(o.Remaining)
}

// OrderUpdate is a partial update applied by the store.
// Nil fields are left untouched.
type OrderUpdate struct {
	Remaining *decimal.Decimal
	Status    *OrderStatus
}

// Fill returns the update for an order whose remaining quantity became remaining.
// A non-positive remaining flips the order to matched with remaining forced to exactly zero.
func Fill(remaining decimal.Decimal) OrderUpdate {
	if remaining.Sign() <= 0 {
		zero := decimal.Zero
		status := StatusMatched
		return OrderUpdate{Remaining: &zero, Status: &status}
	}
	return OrderUpdate{Remaining: &remaining}
}

// Cancel returns the update that cancels an order without touching its remaining quantity.
func Cancel() OrderUpdate {
	status := StatusCancelled
	return OrderUpdate{Status: &status}
}

// SubmitOrderRequest carries the raw fields of a new order.
// Price is ignored for market orders.
type SubmitOrderRequest struct {
	Owner    string
	Outcome  Outcome
	Side     Side
	Category Category
	Price    *decimal.Decimal
	Quantity decimal.Decimal
}

// Validate rejects malformed submissions before anything is written.
func (r SubmitOrderRequest) Validate() error {
	if r.Owner == "" {
		return NewValidationError("userAddress", "is required")
	}
	if !r.Outcome.Valid() {
		return NewValidationError("tokenType", "must be yes or no")
	}
	if !r.Side.Valid() {
		return NewValidationError("orderType", "must be buy or sell")
	}
	if !r.Category.Valid() {
		return NewValidationError("tradeType", "must be limit or market")
	}
	if r.Quantity.Sign() <= 0 {
		return NewValidationError("amount", "must be greater than 0")
	}
	if r.Category == CategoryLimit {
		if r.Price == nil {
			return NewValidationError("price", "is required for limit orders")
		}
		if !ValidPrice(*r.Price) {
			return NewValidationError("price", "must be between 0 and 1 exclusive")
		}
	}
	return nil
}

// ValidPrice reports whether p lies in the open interval (0, 1).
func ValidPrice(p decimal.Decimal) bool {
	return p.Sign() > 0 && p.LessThan(CollateralUnit)
}
