package engine

import (
	"risk_market/internal/domain"

	"github.com/shopspring/decimal"
)

// ReferencePrice returns the price a market order on outcome/side is stored with:
// the best opposing resting price, or the configured default when that side is empty.
//
// The engine never gates market orders on this price during direct matching; it only
// serves as the resting price and as the limit used for minting and merge.
func (e *Engine) ReferencePrice(outcome domain.Outcome, side domain.Side) (decimal.Decimal, error) {
	return referencePrice(e.store, outcome, side, e.defaultPrice)
}

func referencePrice(store domain.OrderStore, outcome domain.Outcome, side domain.Side, fallback decimal.Decimal) (decimal.Decimal, error) {
	opposite := side.Opposite()
	orders, err := store.GetActiveOrders(outcome, &opposite)
	if err != nil {
		return decimal.Zero, err
	}
	if len(orders) == 0 {
		return fallback, nil
	}
	return orders[0].Price, nil
}
