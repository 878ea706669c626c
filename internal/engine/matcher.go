package engine

import (
	"fmt"
	"log/slog"
	"time"

	"risk_market/internal/domain"
	"risk_market/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine matches incoming orders against the resting book held in an OrderStore.
//
// Every submission runs to completion under the outcome locks and inside one storage
// transaction, so a failed write never leaves an order half mutated.
type Engine struct {
	store        domain.OrderStore
	locks        outcomeLocks
	clock        *Clock
	defaultPrice decimal.Decimal
	metrics      *infra.Metrics
}

// NewEngine creates an engine over store. defaultPrice prices market orders against an empty book.
func NewEngine(store domain.OrderStore, defaultPrice decimal.Decimal, metrics *infra.Metrics) *Engine {
	return &Engine{
		store:        store,
		clock:        NewClock(),
		defaultPrice: defaultPrice,
		metrics:      metrics,
	}
}

// NewOrder builds a pending order from a validated request.
// Market orders get their reference price when they are submitted.
func (e *Engine) NewOrder(req domain.SubmitOrderRequest) *domain.Order {
	order := &domain.Order{
		ID:        uuid.NewString(),
		Owner:     req.Owner,
		Outcome:   req.Outcome,
		Side:      req.Side,
		Category:  req.Category,
		Remaining: req.Quantity,
		Original:  req.Quantity,
		Timestamp: e.clock.Next(),
		Status:    domain.StatusPending,
	}
	if req.Category == domain.CategoryLimit && req.Price != nil {
		order.Price = *req.Price
	}
	return order
}

// Submit persists a new order and matches it in a single transaction.
// On success order reflects its final remaining quantity and status.
func (e *Engine) Submit(order *domain.Order) ([]domain.MatchResult, error) {
	if err := checkSubmittable(order); err != nil {
		e.metrics.RecordRejected()
		slog.Warn("Order refused by engine",
			slog.String("order", order.ID),
			slog.String("remaining", order.Remaining.String()),
			slog.String("price", order.Price.String()),
		)
		return nil, err
	}

	start := time.Now()
	unlock := e.locks.lockBoth()
	defer unlock()

	var matches []domain.MatchResult
	err := e.store.Transaction(func(tx domain.OrderStore) error {
		if order.IsMarket() && order.Price.Sign() <= 0 {
			price, err := referencePrice(tx, order.Outcome, order.Side, e.defaultPrice)
			if err != nil {
				return err
			}
			order.Price = price
		}
		if err := tx.Insert(order); err != nil {
			return err
		}

		var err error
		matches, err = e.match(tx, order)
		return err
	})
	if err != nil {
		e.metrics.RecordError()
		return nil, fmt.Errorf("submit order %s: %w", order.ID, err)
	}

	e.metrics.RecordSubmit(order, time.Since(start))
	for _, m := range matches {
		e.metrics.RecordMatch(m.Kind)
	}
	return matches, nil
}

// MatchOrders runs the matching policy for an order that is already stored.
// Only order.ID is trusted: the order is re-read inside the transaction and matched from the
// stored row. Unknown or non-pending orders are a no-op. On success order is overwritten with
// the stored state after matching.
func (e *Engine) MatchOrders(order *domain.Order) ([]domain.MatchResult, error) {
	unlock := e.locks.lockBoth()
	defer unlock()

	var (
		matches []domain.MatchResult
		current *domain.Order
	)
	err := e.store.Transaction(func(tx domain.OrderStore) error {
		stored, err := tx.GetByID(order.ID)
		if err != nil {
			return err
		}
		if stored == nil || !stored.IsPending() {
			slog.Warn("Order not matchable", slog.String("order", order.ID))
			return nil
		}

		matches, err = e.match(tx, stored)
		if err != nil {
			return err
		}
		current = stored
		return nil
	})
	if err != nil {
		e.metrics.RecordError()
		return nil, fmt.Errorf("match order %s: %w", order.ID, err)
	}

	if current != nil {
		*order = *current
	}
	for _, m := range matches {
		e.metrics.RecordMatch(m.Kind)
	}
	return matches, nil
}

// checkSubmittable refuses orders that must never reach the book, whoever built them.
// A market order may still carry a zero price; Submit prices it.
func checkSubmittable(order *domain.Order) error {
	if order.Remaining.Sign() <= 0 {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	if !order.Original.Equal(order.Remaining) || !order.IsPending() {
		return domain.NewValidationError("order", "must be a new pending order")
	}
	if order.IsMarket() && order.Price.IsZero() {
		return nil
	}
	if !domain.ValidPrice(order.Price) {
		return domain.NewValidationError("price", "must be between 0 and 1 exclusive")
	}
	return nil
}

// match runs direct, then minting or merge, then finalizes the incoming order.
// Must be called with both outcome locks held and tx bound to a transaction.
func (e *Engine) match(tx domain.OrderStore, order *domain.Order) ([]domain.MatchResult, error) {
	if !order.IsPending() || order.Remaining.Sign() <= 0 || order.Price.Sign() <= 0 {
		slog.Warn("Order skipped by matcher",
			slog.String("order", order.ID),
			slog.String("status", string(order.Status)),
			slog.String("remaining", order.Remaining.String()),
			slog.String("price", order.Price.String()),
		)
		return nil, nil
	}

	run := &matchRun{engine: e, tx: tx, taker: order, remaining: order.Remaining}

	if err := run.direct(); err != nil {
		return nil, err
	}
	if run.remaining.Sign() > 0 {
		var err error
		if order.Side == domain.SideBuy {
			err = run.complement(domain.MatchMinting)
		} else {
			err = run.complement(domain.MatchMerge)
		}
		if err != nil {
			return nil, err
		}
	}

	update := domain.Fill(run.remaining)
	ok, err := tx.UpdateFields(order.ID, update)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("finalize %s: %w", order.ID, domain.ErrOrderNotPending)
	}
	order.Remaining = *update.Remaining
	if update.Status != nil {
		order.Status = *update.Status
	}

	return run.matches, nil
}

// matchRun is the state of one matchOrders call.
type matchRun struct {
	engine    *Engine
	tx        domain.OrderStore
	taker     *domain.Order
	remaining decimal.Decimal
	matches   []domain.MatchResult
}

// direct pairs the taker with opposite-side orders on the same outcome in price-time priority.
// Limit orders stop at the first candidate whose price does not cross; market orders sweep.
func (r *matchRun) direct() error {
	side := r.taker.Side.Opposite()
	candidates, err := r.tx.GetActiveOrders(r.taker.Outcome, &side)
	if err != nil {
		return err
	}

	for i := range candidates {
		if r.remaining.Sign() <= 0 {
			break
		}
		maker := &candidates[i]
		if !r.taker.IsMarket() && !crosses(r.taker, maker) {
			break
		}
		price := decimal.NewNullDecimal(maker.Price)
		if err := r.fill(maker, domain.MatchDirect, price); err != nil {
			return err
		}
	}
	return nil
}

// complement mints (two buys) or merges (two sells) against the opposite outcome,
// oldest resting order first. Pairs whose prices sum below one collateral unit are skipped.
func (r *matchRun) complement(kind domain.MatchKind) error {
	candidates, err := r.tx.GetActiveOrders(r.taker.Outcome.Opposite(), nil)
	if err != nil {
		return err
	}

	for i := range candidates {
		if r.remaining.Sign() <= 0 {
			break
		}
		maker := &candidates[i]
		if maker.Side != r.taker.Side {
			continue
		}
		if r.taker.Price.Add(maker.Price).LessThan(domain.CollateralUnit) {
			continue
		}
		if err := r.fill(maker, kind, decimal.NullDecimal{}); err != nil {
			return err
		}
	}
	return nil
}

// fill matches min(taker remaining, maker remaining), updating the maker before the log.
func (r *matchRun) fill(maker *domain.Order, kind domain.MatchKind, price decimal.NullDecimal) error {
	qty := decimal.Min(r.remaining, maker.Remaining)
	if qty.Sign() <= 0 {
		return nil
	}

	ok, err := r.tx.UpdateFields(maker.ID, domain.Fill(maker.Remaining.Sub(qty)))
	if err != nil {
		return err
	}
	if !ok {
		// left the book since the scan; nothing to pair with
		return nil
	}

	match := domain.MatchResult{
		Kind:         kind,
		Outcome:      r.taker.Outcome,
		TakerOrderID: r.taker.ID,
		TakerSide:    r.taker.Side,
		MakerOrderID: maker.ID,
		Quantity:     qty,
		Price:        price,
		Timestamp:    r.engine.clock.Next(),
	}
	if err := r.tx.RecordMatch(&match); err != nil {
		return err
	}

	r.remaining = r.remaining.Sub(qty)
	r.matches = append(r.matches, match)

	slog.Debug("Order matched",
		slog.String("kind", string(kind)),
		slog.String("taker", r.taker.ID),
		slog.String("maker", maker.ID),
		slog.String("qty", qty.String()),
	)
	return nil
}

// crosses reports whether the buy price of the pair is at least the sell price.
func crosses(taker, maker *domain.Order) bool {
	if taker.Side == domain.SideBuy {
		return taker.Price.GreaterThanOrEqual(maker.Price)
	}
	return maker.Price.GreaterThanOrEqual(taker.Price)
}
