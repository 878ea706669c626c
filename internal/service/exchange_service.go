package service

import (
	"fmt"
	"log/slog"
	"time"

	"risk_market/internal/domain"
	"risk_market/internal/engine"
	"risk_market/internal/event"
	"risk_market/internal/infra"

	"github.com/shopspring/decimal"
)

// Publisher accepts events for asynchronous delivery. Publish must not block.
type Publisher interface {
	Publish(ev event.Event) bool
}

// ExchangeService is the entry point transports call into.
// It validates input, drives the engine and announces every state change.
type ExchangeService struct {
	engine       *engine.Engine
	store        domain.OrderStore
	events       Publisher
	metrics      *infra.Metrics
	defaultPrice decimal.Decimal
	now          func() time.Time
}

// NewExchangeService wires the service. events may be nil when nobody listens.
func NewExchangeService(eng *engine.Engine, store domain.OrderStore, events Publisher, metrics *infra.Metrics, defaultPrice decimal.Decimal) *ExchangeService {
	return &ExchangeService{
		engine:       eng,
		store:        store,
		events:       events,
		metrics:      metrics,
		defaultPrice: defaultPrice,
		now:          time.Now,
	}
}

// SubmitOrder validates, persists and matches a new order.
// The returned order reflects its state after matching.
func (s *ExchangeService) SubmitOrder(req domain.SubmitOrderRequest) (*domain.Order, []domain.MatchResult, error) {
	if err := req.Validate(); err != nil {
		s.metrics.RecordRejected()
		slog.Warn("Order rejected", slog.String("owner", req.Owner), slog.Any("error", err))
		return nil, nil, err
	}

	order := s.engine.NewOrder(req)
	matches, err := s.engine.Submit(order)
	if err != nil {
		slog.Error("Order submission failed", slog.String("order", order.ID), slog.Any("error", err))
		return nil, nil, err
	}

	slog.Info("Order submitted",
		slog.String("order", order.ID),
		slog.String("outcome", string(order.Outcome)),
		slog.String("side", string(order.Side)),
		slog.String("price", order.Price.String()),
		slog.Int("matches", len(matches)),
	)

	ts := s.now().UnixNano()
	s.publish(event.NewOrderSubmitted(ts, *order, matches))
	for _, m := range matches {
		s.publish(event.NewOrderMatched(ts, m))
	}
	s.publishBooks()

	return order, matches, nil
}

// CancelOrder cancels a pending order owned by owner. False covers unknown, foreign and
// already finished orders alike.
func (s *ExchangeService) CancelOrder(orderID, owner string) (bool, error) {
	ok, err := s.engine.CancelOrder(orderID, owner)
	if err != nil || !ok {
		return false, err
	}

	s.publish(event.NewOrderCancelled(s.now().UnixNano(), orderID, owner))
	s.publishBooks()
	return true, nil
}

func (s *ExchangeService) EstimateMarketOrder(outcome domain.Outcome, side domain.Side, qty decimal.Decimal) (domain.MarketOrderEstimate, error) {
	if !outcome.Valid() {
		return domain.MarketOrderEstimate{}, domain.NewValidationError("tokenType", "must be yes or no")
	}
	if !side.Valid() {
		return domain.MarketOrderEstimate{}, domain.NewValidationError("orderType", "must be buy or sell")
	}
	if qty.Sign() <= 0 {
		return domain.MarketOrderEstimate{}, domain.NewValidationError("amount", "must be greater than 0")
	}
	return s.engine.EstimateMarketOrder(outcome, side, qty)
}

// QueryOrderBook lists every resting order of outcome, one row per order, in matching order.
func (s *ExchangeService) QueryOrderBook(outcome domain.Outcome) (domain.OrderBookView, error) {
	if !outcome.Valid() {
		return domain.OrderBookView{}, domain.NewValidationError("tokenType", "must be yes or no")
	}

	view := domain.OrderBookView{Outcome: outcome}
	for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
		orders, err := s.store.GetActiveOrders(outcome, &side)
		if err != nil {
			return domain.OrderBookView{}, fmt.Errorf("query order book: %w", err)
		}
		entries := make([]domain.BookEntry, 0, len(orders))
		for _, o := range orders {
			entries = append(entries, domain.BookEntry{
				ID:        o.ID,
				Price:     o.Price,
				Quantity:  o.Remaining,
				Timestamp: o.Timestamp,
			})
		}
		if side == domain.SideBuy {
			view.BuySide = entries
		} else {
			view.SellSide = entries
		}
	}
	return view, nil
}

// QueryBestPrices reports the top of book. Spread is only set when both sides have orders.
func (s *ExchangeService) QueryBestPrices(outcome domain.Outcome) (domain.BestPrices, error) {
	book, err := s.QueryOrderBook(outcome)
	if err != nil {
		return domain.BestPrices{}, err
	}

	best := domain.BestPrices{
		BestBuyPrice:  decimal.Zero,
		BestSellPrice: decimal.Zero,
		BuyCount:      len(book.BuySide),
		SellCount:     len(book.SellSide),
		Spread:        decimal.Zero,
	}
	if len(book.BuySide) > 0 {
		best.BestBuyPrice = book.BuySide[0].Price
	}
	if len(book.SellSide) > 0 {
		best.BestSellPrice = book.SellSide[0].Price
	}
	if best.BestBuyPrice.Sign() > 0 && best.BestSellPrice.Sign() > 0 {
		best.Spread = best.BestSellPrice.Sub(best.BestBuyPrice)
	}
	return best, nil
}

// QueryOwnerOrders returns the owner's pending orders, newest first.
func (s *ExchangeService) QueryOwnerOrders(owner string) ([]domain.Order, error) {
	if owner == "" {
		return nil, domain.NewValidationError("userAddress", "is required")
	}
	orders, err := s.store.GetOrdersByOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("query owner orders: %w", err)
	}
	return orders, nil
}

// PriceHistory buckets direct trades of outcome within window into hourly points.
func (s *ExchangeService) PriceHistory(outcome domain.Outcome, window string) ([]domain.PricePoint, error) {
	matches, err := s.recentMatches(outcome, window)
	if err != nil {
		return nil, err
	}
	return BuildPriceHistory(matches), nil
}

// PriceStats summarizes direct trades of outcome within window.
func (s *ExchangeService) PriceStats(outcome domain.Outcome, window string) (domain.PriceStats, error) {
	matches, err := s.recentMatches(outcome, window)
	if err != nil {
		return domain.PriceStats{}, err
	}
	return ComputePriceStats(matches, s.defaultPrice), nil
}

func (s *ExchangeService) recentMatches(outcome domain.Outcome, window string) ([]domain.MatchResult, error) {
	if !outcome.Valid() {
		return nil, domain.NewValidationError("tokenType", "must be yes or no")
	}
	d, err := ParseWindow(window)
	if err != nil {
		return nil, domain.NewValidationError("timeRange", "must be one of 1h, 6h, 24h, 7d")
	}

	since := s.now().Add(-d).UnixNano()
	matches, err := s.store.ListMatches(outcome, since)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return matches, nil
}

// publishBooks announces both books; outcomes are coupled through minting and merge.
func (s *ExchangeService) publishBooks() {
	if s.events == nil {
		return
	}
	yes, err := s.QueryOrderBook(domain.OutcomeYes)
	if err != nil {
		slog.Error("Failed to snapshot order book", slog.Any("error", err))
		return
	}
	no, err := s.QueryOrderBook(domain.OutcomeNo)
	if err != nil {
		slog.Error("Failed to snapshot order book", slog.Any("error", err))
		return
	}
	s.publish(event.NewOrderBookUpdated(s.now().UnixNano(), yes, no))
}

func (s *ExchangeService) publish(ev event.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(ev)
}
