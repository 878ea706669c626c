package engine

import (
	"risk_market/internal/domain"

	"github.com/shopspring/decimal"
)

// EstimateMarketOrder simulates a market order of qty without touching the book.
// It walks the same listing direct matching uses, so the estimate follows the real fill order.
func (e *Engine) EstimateMarketOrder(outcome domain.Outcome, side domain.Side, qty decimal.Decimal) (domain.MarketOrderEstimate, error) {
	est := domain.MarketOrderEstimate{
		EstimatedPrice:     decimal.Zero,
		EstimatedQuantity:  decimal.Zero,
		EstimatedTotal:     decimal.Zero,
		AvailableLiquidity: decimal.Zero,
	}
	if qty.Sign() <= 0 {
		return est, nil
	}

	opposite := side.Opposite()
	orders, err := e.store.GetActiveOrders(outcome, &opposite)
	if err != nil {
		return est, err
	}

	remaining := qty
	for _, o := range orders {
		est.AvailableLiquidity = est.AvailableLiquidity.Add(o.Remaining)

		if remaining.Sign() <= 0 {
			continue
		}
		fill := decimal.Min(remaining, o.Remaining)
		est.EstimatedQuantity = est.EstimatedQuantity.Add(fill)
		est.EstimatedTotal = est.EstimatedTotal.Add(fill.Mul(o.Price))
		remaining = remaining.Sub(fill)
	}

	if est.EstimatedQuantity.Sign() > 0 {
		est.EstimatedPrice = est.EstimatedTotal.Div(est.EstimatedQuantity)
	}
	return est, nil
}
