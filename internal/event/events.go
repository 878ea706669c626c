package event

import (
	"risk_market/internal/domain"
)

// Type identifies an event on the wire.
type Type string

const (
	TypeOrderSubmitted   Type = "order_submitted"
	TypeOrderMatched     Type = "order_matched"
	TypeOrderCancelled   Type = "order_cancelled"
	TypeOrderBookUpdated Type = "orderbook_update"
)

// Event is anything the dispatcher fans out to its sinks.
type Event interface {
	GetSeq() uint64
	GetType() Type
	// Key groups related events, e.g. as a kafka partition key.
	Key() string
	setSeq(seq uint64)
}

// Header carries the fields shared by every event.
type Header struct {
	Seq  uint64 `json:"seq"`
	Ts   int64  `json:"ts"` // unix nanos
	Type Type   `json:"type"`
}

func (h *Header) GetSeq() uint64    { return h.Seq }
func (h *Header) GetType() Type     { return h.Type }
func (h *Header) setSeq(seq uint64) { h.Seq = seq }

// OrderSubmitted is emitted once per accepted order, after its matches were committed.
type OrderSubmitted struct {
	Header
	Order   domain.Order         `json:"order"`
	Matches []domain.MatchResult `json:"matches"`
}

func NewOrderSubmitted(ts int64, order domain.Order, matches []domain.MatchResult) *OrderSubmitted {
	if matches == nil {
		matches = []domain.MatchResult{}
	}
	return &OrderSubmitted{
		Header:  Header{Ts: ts, Type: TypeOrderSubmitted},
		Order:   order,
		Matches: matches,
	}
}

func (e *OrderSubmitted) Key() string { return e.Order.ID }

// OrderMatched is emitted for every match record.
type OrderMatched struct {
	Header
	Match domain.MatchResult `json:"match"`
}

func NewOrderMatched(ts int64, match domain.MatchResult) *OrderMatched {
	return &OrderMatched{
		Header: Header{Ts: ts, Type: TypeOrderMatched},
		Match:  match,
	}
}

func (e *OrderMatched) Key() string { return e.Match.TakerOrderID }

type OrderCancelled struct {
	Header
	OrderID string `json:"orderId"`
	Owner   string `json:"userAddress"`
}

func NewOrderCancelled(ts int64, orderID, owner string) *OrderCancelled {
	return &OrderCancelled{
		Header:  Header{Ts: ts, Type: TypeOrderCancelled},
		OrderID: orderID,
		Owner:   owner,
	}
}

func (e *OrderCancelled) Key() string { return e.OrderID }

// OrderBookUpdated carries both books after any change to resting orders.
type OrderBookUpdated struct {
	Header
	Yes domain.OrderBookView `json:"yes"`
	No  domain.OrderBookView `json:"no"`
}

func NewOrderBookUpdated(ts int64, yes, no domain.OrderBookView) *OrderBookUpdated {
	return &OrderBookUpdated{
		Header: Header{Ts: ts, Type: TypeOrderBookUpdated},
		Yes:    yes,
		No:     no,
	}
}

func (e *OrderBookUpdated) Key() string { return "orderbook" }
