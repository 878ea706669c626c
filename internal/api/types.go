package api

import (
	"risk_market/internal/domain"

	"github.com/shopspring/decimal"
)

// ==============================
// REST Types
// ==============================

// Response is the envelope of every REST reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// PlaceOrderRequest is the body of POST /api/orders. Numbers may be sent as JSON strings or numbers.
type PlaceOrderRequest struct {
	UserAddress string           `json:"userAddress"`
	TokenType   string           `json:"tokenType"` // "yes" or "no"
	OrderType   string           `json:"orderType"` // "buy" or "sell"
	TradeType   string           `json:"tradeType"` // "limit" or "market"
	Price       *decimal.Decimal `json:"price,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
}

func (r PlaceOrderRequest) toDomain() domain.SubmitOrderRequest {
	return domain.SubmitOrderRequest{
		Owner:    r.UserAddress,
		Outcome:  domain.Outcome(r.TokenType),
		Side:     domain.Side(r.OrderType),
		Category: domain.Category(r.TradeType),
		Price:    r.Price,
		Quantity: r.Amount,
	}
}

type PlaceOrderResponse struct {
	Order   *domain.Order        `json:"order"`
	Matches []domain.MatchResult `json:"matches"`
}

type CancelOrderRequest struct {
	UserAddress string `json:"userAddress"`
}

type EstimateRequest struct {
	TokenType string          `json:"tokenType"`
	OrderType string          `json:"orderType"`
	Amount    decimal.Decimal `json:"amount"`
}

type HealthInfo struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Metrics   any    `json:"metrics,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSMessage is the frame pushed to every connected client.
type WSMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
	Data any    `json:"data"`
}

type ConnectedInfo struct {
	ClientID string `json:"clientId"`
}

type BooksSnapshot struct {
	Yes domain.OrderBookView `json:"yes"`
	No  domain.OrderBookView `json:"no"`
}
