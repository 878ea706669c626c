package engine

import (
	"path/filepath"
	"testing"

	"risk_market/internal/domain"
	"risk_market/internal/infra/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var half = decimal.RequireFromString("0.5")

func setupEngine(t *testing.T) (*Engine, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewEngine(store, half, nil), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// submit places an order through the engine; price "" means a market order.
func submit(t *testing.T, e *Engine, owner string, outcome domain.Outcome, side domain.Side, price, qty string) (*domain.Order, []domain.MatchResult) {
	t.Helper()
	req := domain.SubmitOrderRequest{
		Owner:    owner,
		Outcome:  outcome,
		Side:     side,
		Category: domain.CategoryMarket,
		Quantity: dec(qty),
	}
	if price != "" {
		p := dec(price)
		req.Category = domain.CategoryLimit
		req.Price = &p
	}
	require.NoError(t, req.Validate())

	order := e.NewOrder(req)
	matches, err := e.Submit(order)
	require.NoError(t, err)
	return order, matches
}

func reload(t *testing.T, store *storage.Storage, id string) *domain.Order {
	t.Helper()
	o, err := store.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestScenarioA_EmptyBook(t *testing.T) {
	e, store := setupEngine(t)

	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.6", "10")

	assert.Empty(t, matches)
	got := reload(t, store, order.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assertDec(t, "10", got.Remaining)
}

func TestScenarioB_DirectAtRestingPrice(t *testing.T) {
	e, store := setupEngine(t)

	resting, _ := submit(t, e, "bob", domain.OutcomeYes, domain.SideSell, "0.4", "5")
	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.6", "10")

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, domain.MatchDirect, m.Kind)
	require.True(t, m.Price.Valid)
	assertDec(t, "0.4", m.Price.Decimal, "execution price is the resting order's")
	assertDec(t, "5", m.Quantity)
	assert.Equal(t, order.ID, m.BuyOrderID())
	assert.Equal(t, resting.ID, m.SellOrderID())

	got := reload(t, store, order.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assertDec(t, "5", got.Remaining)

	rest := reload(t, store, resting.ID)
	assert.Equal(t, domain.StatusMatched, rest.Status)
	assert.True(t, rest.Remaining.IsZero())
}

func TestDirect_IncomingSellUsesRestingBuyPrice(t *testing.T) {
	e, _ := setupEngine(t)

	submit(t, e, "bob", domain.OutcomeNo, domain.SideBuy, "0.7", "4")
	_, matches := submit(t, e, "alice", domain.OutcomeNo, domain.SideSell, "0.5", "4")

	require.Len(t, matches, 1)
	assertDec(t, "0.7", matches[0].Price.Decimal)
}

func TestScenarioC_Minting(t *testing.T) {
	e, store := setupEngine(t)

	resting, _ := submit(t, e, "bob", domain.OutcomeNo, domain.SideBuy, "0.45", "8")
	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.6", "8")

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, domain.MatchMinting, m.Kind)
	assert.False(t, m.Price.Valid, "minting records no price")
	assertDec(t, "8", m.Quantity)
	assert.Equal(t, order.ID, m.YesOrderID())
	assert.Equal(t, resting.ID, m.NoOrderID())

	assert.Equal(t, domain.StatusMatched, reload(t, store, order.ID).Status)
	assert.Equal(t, domain.StatusMatched, reload(t, store, resting.ID).Status)
}

func TestMinting_ExactBoundary(t *testing.T) {
	t.Run("sum of exactly one mints", func(t *testing.T) {
		e, _ := setupEngine(t)
		submit(t, e, "bob", domain.OutcomeNo, domain.SideBuy, "0.45", "3")
		_, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.55", "3")
		require.Len(t, matches, 1)
		assert.Equal(t, domain.MatchMinting, matches[0].Kind)
	})

	t.Run("just below one does not", func(t *testing.T) {
		e, store := setupEngine(t)
		resting, _ := submit(t, e, "bob", domain.OutcomeNo, domain.SideBuy, "0.45", "3")
		order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.5499999999", "3")
		assert.Empty(t, matches)
		assert.Equal(t, domain.StatusPending, reload(t, store, order.ID).Status)
		assert.Equal(t, domain.StatusPending, reload(t, store, resting.ID).Status)
	})

	t.Run("tenths that are inexact in binary", func(t *testing.T) {
		e, _ := setupEngine(t)
		submit(t, e, "bob", domain.OutcomeNo, domain.SideBuy, "0.3", "1")
		submit(t, e, "carol", domain.OutcomeNo, domain.SideBuy, "0.1", "1")
		// 0.7 + 0.3 = 1 exactly; 0.7 + 0.1 is not
		_, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.7", "2")
		require.Len(t, matches, 1)
		assertDec(t, "1", matches[0].Quantity)
	})
}

func TestMinting_OldestFirstAndSkipsIneligible(t *testing.T) {
	e, _ := setupEngine(t)

	low, _ := submit(t, e, "bob", domain.OutcomeNo, domain.SideBuy, "0.2", "5")
	first, _ := submit(t, e, "carol", domain.OutcomeNo, domain.SideBuy, "0.5", "2")
	second, _ := submit(t, e, "dave", domain.OutcomeNo, domain.SideBuy, "0.9", "5")

	_, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.6", "4")

	require.Len(t, matches, 2)
	assert.Equal(t, first.ID, matches[0].MakerOrderID, "older eligible order first even at a lower price")
	assertDec(t, "2", matches[0].Quantity)
	assert.Equal(t, second.ID, matches[1].MakerOrderID)
	assertDec(t, "2", matches[1].Quantity)
	for _, m := range matches {
		assert.NotEqual(t, low.ID, m.MakerOrderID)
	}
}

func TestMerge(t *testing.T) {
	e, store := setupEngine(t)

	resting, _ := submit(t, e, "bob", domain.OutcomeNo, domain.SideSell, "0.4", "6")
	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideSell, "0.6", "4")

	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchMerge, matches[0].Kind)
	assert.False(t, matches[0].Price.Valid)
	assertDec(t, "4", matches[0].Quantity)

	assert.Equal(t, domain.StatusMatched, reload(t, store, order.ID).Status)
	rest := reload(t, store, resting.ID)
	assert.Equal(t, domain.StatusPending, rest.Status)
	assertDec(t, "2", rest.Remaining)
}

func TestScenarioD_NoMergeBelowOne(t *testing.T) {
	e, store := setupEngine(t)

	submit(t, e, "bob", domain.OutcomeNo, domain.SideSell, "0.3", "4")
	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideSell, "0.65", "4")

	assert.Empty(t, matches)
	got := reload(t, store, order.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assertDec(t, "4", got.Remaining)
}

func TestScenarioE_MarketOrderSweepsLevels(t *testing.T) {
	e, store := setupEngine(t)

	first, _ := submit(t, e, "bob", domain.OutcomeYes, domain.SideSell, "0.55", "3")
	second, _ := submit(t, e, "carol", domain.OutcomeYes, domain.SideSell, "0.6", "20")

	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "", "10")

	require.Len(t, matches, 2)
	assert.Equal(t, first.ID, matches[0].MakerOrderID)
	assertDec(t, "0.55", matches[0].Price.Decimal)
	assertDec(t, "3", matches[0].Quantity)
	assert.Equal(t, second.ID, matches[1].MakerOrderID)
	assertDec(t, "0.6", matches[1].Price.Decimal)
	assertDec(t, "7", matches[1].Quantity)

	got := reload(t, store, order.ID)
	assert.Equal(t, domain.StatusMatched, got.Status)
	assertDec(t, "0.55", got.Price, "market order keeps its reference price")
	assertDec(t, "13", reload(t, store, second.ID).Remaining)
}

func TestMarketOrder_EmptyBookRestsAtDefaultPrice(t *testing.T) {
	e, store := setupEngine(t)

	order, matches := submit(t, e, "alice", domain.OutcomeNo, domain.SideSell, "", "2")

	assert.Empty(t, matches)
	got := reload(t, store, order.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assertDec(t, "0.5", got.Price)
}

func TestPriceTimePriority(t *testing.T) {
	e, _ := setupEngine(t)

	late, _ := submit(t, e, "s1", domain.OutcomeYes, domain.SideSell, "0.5", "1")
	cheap, _ := submit(t, e, "s2", domain.OutcomeYes, domain.SideSell, "0.45", "1")
	tie, _ := submit(t, e, "s3", domain.OutcomeYes, domain.SideSell, "0.50", "1")
	tooHigh, _ := submit(t, e, "s4", domain.OutcomeYes, domain.SideSell, "0.8", "1")

	_, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.5", "5")

	require.Len(t, matches, 3, "the 0.8 level does not cross")
	assert.Equal(t, cheap.ID, matches[0].MakerOrderID)
	assert.Equal(t, late.ID, matches[1].MakerOrderID, "equal price: earlier order first")
	assert.Equal(t, tie.ID, matches[2].MakerOrderID)
	for _, m := range matches {
		assert.NotEqual(t, tooHigh.ID, m.MakerOrderID)
	}
}

func TestDirectThenMinting(t *testing.T) {
	e, store := setupEngine(t)

	submit(t, e, "bob", domain.OutcomeYes, domain.SideSell, "0.5", "2")
	submit(t, e, "carol", domain.OutcomeNo, domain.SideBuy, "0.5", "5")

	order, matches := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.55", "4")

	require.Len(t, matches, 2)
	assert.Equal(t, domain.MatchDirect, matches[0].Kind)
	assert.Equal(t, domain.MatchMinting, matches[1].Kind)
	assertDec(t, "2", matches[1].Quantity)
	assert.Equal(t, domain.StatusMatched, reload(t, store, order.ID).Status)
}

func TestQuantityConservation(t *testing.T) {
	e, store := setupEngine(t)

	type step struct {
		outcome domain.Outcome
		side    domain.Side
		price   string
		qty     string
	}
	steps := []step{
		{domain.OutcomeYes, domain.SideSell, "0.4", "3.5"},
		{domain.OutcomeYes, domain.SideSell, "0.45", "2.25"},
		{domain.OutcomeNo, domain.SideBuy, "0.5", "4"},
		{domain.OutcomeYes, domain.SideBuy, "0.6", "7.125"},
		{domain.OutcomeNo, domain.SideSell, "0.35", "1.5"},
		{domain.OutcomeYes, domain.SideSell, "0.7", "3"},
		{domain.OutcomeNo, domain.SideBuy, "0.3", "2"},
		{domain.OutcomeYes, domain.SideBuy, "", "4"},
	}

	var orders []*domain.Order
	var all []domain.MatchResult
	for i, s := range steps {
		o, m := submit(t, e, "user", s.outcome, s.side, s.price, s.qty)
		orders = append(orders, o)
		all = append(all, m...)
		if i == 4 {
			_, err := e.CancelOrder(orders[2].ID, "user")
			require.NoError(t, err)
		}
	}

	for _, o := range orders {
		got := reload(t, store, o.ID)
		filled := decimal.Zero
		for _, m := range all {
			if m.Involves(o.ID) {
				filled = filled.Add(m.Quantity)
			}
		}
		assert.True(t, filled.Add(got.Remaining).Equal(got.Original),
			"order %s: filled %s + remaining %s != original %s", o.ID, filled, got.Remaining, got.Original)
		assert.True(t, got.Remaining.Sign() >= 0)
		if got.Status == domain.StatusMatched {
			assert.True(t, got.Remaining.IsZero())
		}
	}

	for _, m := range all {
		assert.True(t, m.Quantity.Sign() > 0)
		if m.Kind == domain.MatchMinting || m.Kind == domain.MatchMerge {
			yes := reload(t, store, m.YesOrderID())
			no := reload(t, store, m.NoOrderID())
			assert.False(t, yes.Price.Add(no.Price).LessThan(domain.CollateralUnit))
		}
	}
}

func TestMatchOrders_IgnoresNonPending(t *testing.T) {
	e, store := setupEngine(t)

	submit(t, e, "bob", domain.OutcomeYes, domain.SideSell, "0.4", "5")
	order, _ := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.3", "5")

	ok, err := e.CancelOrder(order.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	cancelled := reload(t, store, order.ID)
	cancelled.Price = dec("0.9")
	matches, err := e.MatchOrders(cancelled)
	require.NoError(t, err)
	assert.Empty(t, matches)

	got := reload(t, store, order.ID)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assertDec(t, "0.3", got.Price)
}

func TestMatchOrders_RejectsNonPositive(t *testing.T) {
	e, _ := setupEngine(t)

	matches, err := e.MatchOrders(&domain.Order{ID: "x", Status: domain.StatusPending, Remaining: dec("-1"), Price: dec("0.5")})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = e.MatchOrders(&domain.Order{ID: "y", Status: domain.StatusPending, Remaining: dec("1"), Price: decimal.Zero})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSubmit_RefusesNonPositiveWithoutWriting(t *testing.T) {
	e, store := setupEngine(t)

	zero := decimal.Zero
	tests := []struct {
		name string
		req  domain.SubmitOrderRequest
	}{
		{"negative quantity and zero price", domain.SubmitOrderRequest{
			Owner: "alice", Outcome: domain.OutcomeYes, Side: domain.SideBuy,
			Category: domain.CategoryLimit, Price: &zero, Quantity: dec("-3"),
		}},
		{"zero limit price", domain.SubmitOrderRequest{
			Owner: "alice", Outcome: domain.OutcomeYes, Side: domain.SideBuy,
			Category: domain.CategoryLimit, Price: &zero, Quantity: dec("3"),
		}},
		{"zero market quantity", domain.SubmitOrderRequest{
			Owner: "alice", Outcome: domain.OutcomeNo, Side: domain.SideSell,
			Category: domain.CategoryMarket, Quantity: decimal.Zero,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := e.NewOrder(tt.req)
			matches, err := e.Submit(order)

			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Empty(t, matches)

			got, err := store.GetByID(order.ID)
			require.NoError(t, err)
			assert.Nil(t, got, "refused order must not be stored")
		})
	}

	t.Run("price above one", func(t *testing.T) {
		order := e.NewOrder(domain.SubmitOrderRequest{
			Owner: "alice", Outcome: domain.OutcomeYes, Side: domain.SideBuy,
			Category: domain.CategoryLimit, Quantity: dec("1"),
		})
		order.Price = dec("1.2")
		_, err := e.Submit(order)
		assert.True(t, domain.IsValidation(err))
	})

	book, err := store.GetActiveOrders(domain.OutcomeYes, nil)
	require.NoError(t, err)
	assert.Empty(t, book)
}

func TestMatchOrders_UsesStoredState(t *testing.T) {
	e, store := setupEngine(t)

	buy, _ := submit(t, e, "alice", domain.OutcomeYes, domain.SideBuy, "0.6", "2")
	sell, _ := submit(t, e, "bob", domain.OutcomeYes, domain.SideSell, "0.7", "10")

	stale := reload(t, store, buy.ID)
	stale.Remaining = dec("10")
	stale.Price = dec("0.7")

	matches, err := e.MatchOrders(stale)
	require.NoError(t, err)
	assert.Empty(t, matches, "stored price 0.6 does not cross 0.7")

	got := reload(t, store, buy.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assertDec(t, "2", got.Remaining)
	assertDec(t, "0.6", got.Price)
	assertDec(t, "10", reload(t, store, sell.ID).Remaining)

	assertDec(t, "2", stale.Remaining, "caller copy is refreshed from the store")
	assertDec(t, "0.6", stale.Price)
}

func TestMatchOrders_FillsFromStoredRemaining(t *testing.T) {
	e, store := setupEngine(t)

	sell, _ := submit(t, e, "bob", domain.OutcomeYes, domain.SideSell, "0.5", "10")

	p := dec("0.6")
	buy := e.NewOrder(domain.SubmitOrderRequest{
		Owner: "alice", Outcome: domain.OutcomeYes, Side: domain.SideBuy,
		Category: domain.CategoryLimit, Price: &p, Quantity: dec("3"),
	})
	require.NoError(t, store.Insert(buy))

	stale := *buy
	stale.Remaining = dec("1")

	matches, err := e.MatchOrders(&stale)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assertDec(t, "3", matches[0].Quantity)

	assert.Equal(t, domain.StatusMatched, stale.Status)
	assert.True(t, stale.Remaining.IsZero())
	assertDec(t, "7", reload(t, store, sell.ID).Remaining)

	again, err := e.MatchOrders(&stale)
	require.NoError(t, err)
	assert.Empty(t, again, "matched order is no longer matchable")
}
