package domain

import "github.com/shopspring/decimal"

// MatchKind is the matching policy that produced a MatchResult.
type MatchKind string

const (
	MatchDirect  MatchKind = "direct"
	MatchMinting MatchKind = "minting"
	MatchMerge   MatchKind = "merge"
)

// MatchResult records one pairing. It is append-only.
//
// Direct matches pair a buy and a sell on the same outcome at the maker's price.
// Minting pairs two buys on complementary outcomes, merge pairs two sells; neither carries a price.
type MatchResult struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Kind         MatchKind           `gorm:"type:text;not null;index:idx_matches_history,priority:1" json:"type"`
	Outcome      Outcome             `gorm:"type:text;not null;index:idx_matches_history,priority:2" json:"tokenType"`
	TakerOrderID string              `gorm:"type:text;not null;index" json:"takerOrderId"`
	TakerSide    Side                `gorm:"type:text;not null" json:"takerSide"`
	MakerOrderID string              `gorm:"type:text;not null;index" json:"makerOrderId"`
	Quantity     decimal.Decimal     `gorm:"type:text;not null" json:"matchedAmount"`
	Price        decimal.NullDecimal `gorm:"type:text" json:"matchedPrice"`
	Timestamp    int64               `gorm:"not null;index:idx_matches_history,priority:3" json:"timestamp"`
}

// TableName keeps the table name stable regardless of the struct name.
func (MatchResult) TableName() string {
	return "matches"
}

// BuyOrderID returns the buying order of a direct match.
func (m *MatchResult) BuyOrderID() string {
	if m.TakerSide == SideBuy {
		return m.TakerOrderID
	}
	return m.MakerOrderID
}

// SellOrderID returns the selling order of a direct match.
func (m *MatchResult) SellOrderID() string {
	if m.TakerSide == SideSell {
		return m.TakerOrderID
	}
	return m.MakerOrderID
}

// YesOrderID returns the YES leg of a minting or merge match.
func (m *MatchResult) YesOrderID() string {
	if m.Outcome == OutcomeYes {
		return m.TakerOrderID
	}
	return m.MakerOrderID
}

// NoOrderID returns the NO leg of a minting or merge match.
func (m *MatchResult) NoOrderID() string {
	if m.Outcome == OutcomeNo {
		return m.TakerOrderID
	}
	return m.MakerOrderID
}

// Involves reports whether the match references orderID.
func (m *MatchResult) Involves(orderID string) bool {
	return m.TakerOrderID == orderID || m.MakerOrderID == orderID
}
