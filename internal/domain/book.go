package domain

import "github.com/shopspring/decimal"

// BookEntry is one resting order as shown in the order book (not grouped by price level).
type BookEntry struct {
	ID        string          `json:"id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
}

// OrderBookView lists the resting orders of one outcome in matching order.
type OrderBookView struct {
	Outcome  Outcome     `json:"tokenType"`
	BuySide  []BookEntry `json:"buyOrders"`
	SellSide []BookEntry `json:"sellOrders"`
}

// BestPrices summarizes the top of book. Prices are zero when a side is empty.
type BestPrices struct {
	BestBuyPrice  decimal.Decimal `json:"bestBuyPrice"`
	BestSellPrice decimal.Decimal `json:"bestSellPrice"`
	BuyCount      int             `json:"buyOrderCount"`
	SellCount     int             `json:"sellOrderCount"`
	Spread        decimal.Decimal `json:"spread"`
}

// MarketOrderEstimate is the simulated execution of a market order.
type MarketOrderEstimate struct {
	EstimatedPrice     decimal.Decimal `json:"estimatedPrice"`
	EstimatedQuantity  decimal.Decimal `json:"estimatedAmount"`
	EstimatedTotal     decimal.Decimal `json:"estimatedTotal"`
	AvailableLiquidity decimal.Decimal `json:"availableLiquidity"`
}

// PricePoint is one hourly bucket of the trade history.
type PricePoint struct {
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Trades    int             `json:"trades"`
}

// PriceStats summarizes trading over a lookback window.
type PriceStats struct {
	CurrentPrice       decimal.Decimal `json:"currentPrice"`
	PriceChange        decimal.Decimal `json:"priceChange"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	High               decimal.Decimal `json:"high"`
	Low                decimal.Decimal `json:"low"`
	Volume             decimal.Decimal `json:"volume"`
	TradeCount         int             `json:"tradeCount"`
}
