package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSubmitOrderRequest_Validate(t *testing.T) {
	valid := SubmitOrderRequest{
		Owner:    "0xabc",
		Outcome:  OutcomeYes,
		Side:     SideBuy,
		Category: CategoryLimit,
		Price:    price("0.6"),
		Quantity: decimal.NewFromInt(10),
	}

	t.Run("valid limit order", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("market order needs no price", func(t *testing.T) {
		r := valid
		r.Category = CategoryMarket
		r.Price = nil
		if err := r.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	cases := []struct {
		name  string
		mod   func(r *SubmitOrderRequest)
		field string
	}{
		{"missing owner", func(r *SubmitOrderRequest) { r.Owner = "" }, "userAddress"},
		{"bad outcome", func(r *SubmitOrderRequest) { r.Outcome = "maybe" }, "tokenType"},
		{"bad side", func(r *SubmitOrderRequest) { r.Side = "hold" }, "orderType"},
		{"bad category", func(r *SubmitOrderRequest) { r.Category = "stop" }, "tradeType"},
		{"zero quantity", func(r *SubmitOrderRequest) { r.Quantity = decimal.Zero }, "amount"},
		{"negative quantity", func(r *SubmitOrderRequest) { r.Quantity = decimal.NewFromInt(-1) }, "amount"},
		{"limit without price", func(r *SubmitOrderRequest) { r.Price = nil }, "price"},
		{"zero price", func(r *SubmitOrderRequest) { r.Price = price("0") }, "price"},
		{"price of one", func(r *SubmitOrderRequest) { r.Price = price("1") }, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mod(&r)
			err := r.Validate()
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %s, got %s", tc.field, ve.Field)
			}
		})
	}
}

func TestOutcomeOpposite(t *testing.T) {
	if OutcomeYes.Opposite() != OutcomeNo || OutcomeNo.Opposite() != OutcomeYes {
		t.Error("outcomes should be complementary")
	}
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("sides should be opposite")
	}
}

func TestFill(t *testing.T) {
	t.Run("partial fill keeps status", func(t *testing.T) {
		u := Fill(decimal.RequireFromString("2.5"))
		if u.Status != nil {
			t.Error("partial fill must not change status")
		}
		if !u.Remaining.Equal(decimal.RequireFromString("2.5")) {
			t.Errorf("expected remaining 2.5, got %s", u.Remaining)
		}
	})

	t.Run("exhausted order is matched at exactly zero", func(t *testing.T) {
		u := Fill(decimal.RequireFromString("-0.0001"))
		if u.Status == nil || *u.Status != StatusMatched {
			t.Fatal("expected matched status")
		}
		if !u.Remaining.IsZero() {
			t.Errorf("expected remaining 0, got %s", u.Remaining)
		}
	})
}

func TestMatchResultLegs(t *testing.T) {
	direct := MatchResult{Kind: MatchDirect, Outcome: OutcomeYes, TakerOrderID: "t", TakerSide: SideSell, MakerOrderID: "m"}
	if direct.BuyOrderID() != "m" || direct.SellOrderID() != "t" {
		t.Errorf("unexpected direct legs: buy=%s sell=%s", direct.BuyOrderID(), direct.SellOrderID())
	}

	mint := MatchResult{Kind: MatchMinting, Outcome: OutcomeNo, TakerOrderID: "t", TakerSide: SideBuy, MakerOrderID: "m"}
	if mint.YesOrderID() != "m" || mint.NoOrderID() != "t" {
		t.Errorf("unexpected minting legs: yes=%s no=%s", mint.YesOrderID(), mint.NoOrderID())
	}
	if !mint.Involves("t") || mint.Involves("x") {
		t.Error("Involves mismatch")
	}
}
