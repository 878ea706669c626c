package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"risk_market/internal/domain"
	"risk_market/internal/infra"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
)

// Exchange is the order flow the server exposes.
type Exchange interface {
	SubmitOrder(req domain.SubmitOrderRequest) (*domain.Order, []domain.MatchResult, error)
	CancelOrder(orderID, owner string) (bool, error)
	EstimateMarketOrder(outcome domain.Outcome, side domain.Side, qty decimal.Decimal) (domain.MarketOrderEstimate, error)
	QueryOrderBook(outcome domain.Outcome) (domain.OrderBookView, error)
	QueryBestPrices(outcome domain.Outcome) (domain.BestPrices, error)
	QueryOwnerOrders(owner string) ([]domain.Order, error)
	PriceHistory(outcome domain.Outcome, window string) ([]domain.PricePoint, error)
	PriceStats(outcome domain.Outcome, window string) (domain.PriceStats, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	exchange       Exchange
	router         *mux.Router
	hub            *Hub
	metrics        *infra.Metrics
	gatherer       prometheus.Gatherer
	allowedOrigins []string

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer creates a new API server. gatherer may be nil to disable /metrics.
func NewServer(exchange Exchange, hub *Hub, metrics *infra.Metrics, gatherer prometheus.Gatherer, allowedOrigins []string) *Server {
	s := &Server{
		exchange:       exchange,
		router:         mux.NewRouter(),
		hub:            hub,
		metrics:        metrics,
		gatherer:       gatherer,
		allowedOrigins: allowedOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/{orderId}", s.handleCancelOrder).Methods("DELETE")
	api.HandleFunc("/orders/user/{userAddress}", s.handleGetUserOrders).Methods("GET")
	api.HandleFunc("/estimate-market-order", s.handleEstimate).Methods("POST")
	api.HandleFunc("/orderbook/{tokenType}", s.handleGetOrderBook).Methods("GET")
	api.HandleFunc("/market-price/{tokenType}", s.handleGetMarketPrice).Methods("GET")
	api.HandleFunc("/price-history/{tokenType}", s.handleGetPriceHistory).Methods("GET")
	api.HandleFunc("/price-stats/{tokenType}", s.handleGetPriceStats).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves until Shutdown is called. It returns nil after a graceful shutdown.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = srv
	s.mu.Unlock()

	slog.Info("API server starting", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server; a later Start returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, matches, err := s.exchange.SubmitOrder(req.toDomain())
	if err != nil {
		respondFailure(w, err)
		return
	}
	if matches == nil {
		matches = []domain.MatchResult{}
	}

	message := "order submitted"
	if len(matches) > 0 {
		message = "order submitted and matched"
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    PlaceOrderResponse{Order: order, Matches: matches},
		Message: message,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserAddress == "" {
		respondError(w, http.StatusBadRequest, "userAddress is required")
		return
	}

	ok, err := s.exchange.CancelOrder(orderID, req.UserAddress)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "order not found or cannot be cancelled")
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Message: "order cancelled"})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	est, err := s.exchange.EstimateMarketOrder(domain.Outcome(req.TokenType), domain.Side(req.OrderType), req.Amount)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: est})
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.exchange.QueryOrderBook(outcomeVar(r))
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: book})
}

func (s *Server) handleGetUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.exchange.QueryOwnerOrders(mux.Vars(r)["userAddress"])
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: orders})
}

func (s *Server) handleGetMarketPrice(w http.ResponseWriter, r *http.Request) {
	best, err := s.exchange.QueryBestPrices(outcomeVar(r))
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: best})
}

func (s *Server) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.exchange.PriceHistory(outcomeVar(r), r.URL.Query().Get("timeRange"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: points})
}

func (s *Server) handleGetPriceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.exchange.PriceStats(outcomeVar(r), r.URL.Query().Get("timeRange"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: stats})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := HealthInfo{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.metrics != nil {
		info.Metrics = s.metrics.Snapshot()
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: info, Message: "matching engine running"})
}

// books snapshots both outcomes for new WebSocket clients.
func (s *Server) books() (BooksSnapshot, error) {
	yes, err := s.exchange.QueryOrderBook(domain.OutcomeYes)
	if err != nil {
		return BooksSnapshot{}, err
	}
	no, err := s.exchange.QueryOrderBook(domain.OutcomeNo)
	if err != nil {
		return BooksSnapshot{}, err
	}
	return BooksSnapshot{Yes: yes, No: no}, nil
}

// ==============================
// Helper Functions
// ==============================

func outcomeVar(r *http.Request) domain.Outcome {
	return domain.Outcome(mux.Vars(r)["tokenType"])
}

func respondJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to write response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Message: message})
}

// respondFailure maps validation errors to 400 and hides everything else behind a 500.
func respondFailure(w http.ResponseWriter, err error) {
	if domain.IsValidation(err) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("Request failed", slog.Any("error", err))
	respondError(w, http.StatusInternalServerError, "internal server error")
}
