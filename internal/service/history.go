package service

import (
	"time"

	"risk_market/internal/domain"

	"github.com/shopspring/decimal"
)

const bucketSize = int64(time.Hour)

var windows = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// ParseWindow maps a lookback name to its duration. Empty means 24h.
func ParseWindow(window string) (time.Duration, error) {
	if window == "" {
		window = "24h"
	}
	d, ok := windows[window]
	if !ok {
		return 0, domain.ErrInvalidWindow
	}
	return d, nil
}

// BuildPriceHistory groups trades into hourly buckets, oldest first.
// A bucket's price is its last trade; matches must be in ascending timestamp order.
func BuildPriceHistory(matches []domain.MatchResult) []domain.PricePoint {
	points := make([]domain.PricePoint, 0)
	for _, m := range matches {
		if !m.Price.Valid {
			continue
		}
		bucket := m.Timestamp - m.Timestamp%bucketSize

		n := len(points)
		if n == 0 || points[n-1].Timestamp != bucket {
			points = append(points, domain.PricePoint{Timestamp: bucket, Volume: decimal.Zero})
			n++
		}
		p := &points[n-1]
		p.Price = m.Price.Decimal
		p.Volume = p.Volume.Add(m.Quantity)
		p.Trades++
	}
	return points
}

// ComputePriceStats summarizes trades. Without trades every price is fallback.
func ComputePriceStats(matches []domain.MatchResult, fallback decimal.Decimal) domain.PriceStats {
	stats := domain.PriceStats{
		CurrentPrice:       fallback,
		PriceChange:        decimal.Zero,
		PriceChangePercent: decimal.Zero,
		High:               fallback,
		Low:                fallback,
		Volume:             decimal.Zero,
	}

	var first decimal.Decimal
	for _, m := range matches {
		if !m.Price.Valid {
			continue
		}
		price := m.Price.Decimal
		if stats.TradeCount == 0 {
			first = price
			stats.High = price
			stats.Low = price
		}
		stats.High = decimal.Max(stats.High, price)
		stats.Low = decimal.Min(stats.Low, price)
		stats.CurrentPrice = price
		stats.Volume = stats.Volume.Add(m.Quantity)
		stats.TradeCount++
	}

	if stats.TradeCount > 0 {
		stats.PriceChange = stats.CurrentPrice.Sub(first)
		if first.Sign() > 0 {
			stats.PriceChangePercent = stats.PriceChange.Div(first).Mul(decimal.NewFromInt(100))
		}
	}
	return stats
}
