package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/parkmin/tokenex/pkg/app/core/engine"
	"github.com/parkmin/tokenex/pkg/app/core/ledger"
	"github.com/parkmin/tokenex/pkg/app/core/orderbook"
	"github.com/parkmin/tokenex/pkg/app/core/registry"
	"github.com/parkmin/tokenex/pkg/app/spot"
	"github.com/parkmin/tokenex/pkg/metrics"
)

const historyPageLimit = 1000

// Server is the REST and websocket surface over the spot app.
type Server struct {
	app    *spot.App
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer builds the server and registers its routes. The returned
// server's Hub is also an engine fill sink.
func NewServer(app *spot.App, log *zap.SugaredLogger) *Server {
	s := &Server{
		app:    app,
		router: mux.NewRouter(),
		log:    log,
	}
	s.hub = NewHub(log, s.tradeHistory)
	s.setupRoutes()
	return s
}

// Hub returns the websocket hub so it can be wired as a fill sink.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/tokens", s.handleGetTokens).Methods("GET")
	api.HandleFunc("/books/{ticker}/{side}", s.handleGetBook).Methods("GET")
	api.HandleFunc("/balances/{address}/{ticker}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/trades/{ticker}", s.handleGetTrades).Methods("GET")

	api.HandleFunc("/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("api_listen", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleGetTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.app.Tokens()
	out := make([]TokenInfo, len(tokens))
	for i, tok := range tokens {
		out[i] = TokenInfo{Ticker: tok.Ticker, Handle: tok.Handle.Hex()}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticker := vars["ticker"]
	side, ok := orderbook.ParseSide(vars["side"])
	if !ok {
		respondError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}

	orders, err := s.app.Orders(ticker, side)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = orderInfo(o)
	}
	respondJSON(w, BookSnapshot{
		Ticker:    ticker,
		Side:      side.String(),
		Orders:    out,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["address"]) {
		respondError(w, http.StatusBadRequest, "invalid address")
		return
	}
	trader := common.HexToAddress(vars["address"])
	ticker := vars["ticker"]

	respondJSON(w, BalanceInfo{
		Trader:  trader.Hex(),
		Ticker:  ticker,
		Balance: s.app.BalanceOf(trader, ticker),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	var (
		fills []engine.Fill
		err   error
	)
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, parseErr := strconv.ParseUint(sinceStr, 10, 64)
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, "invalid since")
			return
		}
		fills, err = s.app.TradesSince(since, ticker, historyPageLimit)
	} else {
		fills, err = s.app.RecentTrades(ticker, 100)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]TradeInfo, len(fills))
	for i, f := range fills {
		out[i] = tradeInfo(f)
	}
	respondJSON(w, out)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, trader, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.app.Deposit(r.Context(), trader, req.Ticker, req.Amount); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, BalanceInfo{
		Trader:  trader.Hex(),
		Ticker:  req.Ticker,
		Balance: s.app.BalanceOf(trader, req.Ticker),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, trader, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.app.Withdraw(r.Context(), trader, req.Ticker, req.Amount); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, BalanceInfo{
		Trader:  trader.Hex(),
		Ticker:  req.Ticker,
		Balance: s.app.BalanceOf(trader, req.Ticker),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Trader) {
		respondError(w, http.StatusBadRequest, "invalid trader address")
		return
	}
	trader := common.HexToAddress(req.Trader)

	side, ok := orderbook.ParseSide(req.Side)
	if !ok {
		respondError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}

	start := time.Now()
	var (
		res engine.Result
		err error
	)
	switch req.Type {
	case "limit":
		res, err = s.app.CreateLimitOrder(trader, req.Ticker, req.Amount, req.Price, side)
	case "market":
		res, err = s.app.CreateMarketOrder(trader, req.Ticker, req.Amount, side)
	default:
		respondError(w, http.StatusBadRequest, "type must be limit or market")
		return
	}
	if err != nil {
		metrics.IncOrdersRejected(rejectReason(err))
		respondError(w, statusFor(err), err.Error())
		return
	}

	metrics.ObserveMatchingLatency(time.Since(start))
	metrics.IncOrdersSubmitted(req.Ticker, req.Type)
	for range res.Fills {
		metrics.IncFills(req.Ticker)
	}
	metrics.SetBookDepth(req.Ticker, "BUY", float64(s.app.Engine().Depth(req.Ticker, orderbook.Buy)))
	metrics.SetBookDepth(req.Ticker, "SELL", float64(s.app.Engine().Depth(req.Ticker, orderbook.Sell)))

	s.broadcastBook(req.Ticker)

	out := OrderResponse{
		OrderID:   res.OrderID,
		Ticker:    res.Ticker,
		Side:      side.String(),
		Requested: res.Requested,
		Filled:    res.Filled,
	}
	for _, f := range res.Fills {
		out.Fills = append(out.Fills, tradeInfo(f))
	}
	if res.Resting != nil {
		oi := orderInfo(*res.Resting)
		out.Resting = &oi
	}
	respondJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// broadcastBook pushes both sides of a book to its websocket channel.
func (s *Server) broadcastBook(ticker string) {
	bids, err := s.app.Orders(ticker, orderbook.Buy)
	if err != nil {
		return
	}
	asks, _ := s.app.Orders(ticker, orderbook.Sell)

	ev := WSBookEvent{Type: "book", Ticker: ticker}
	for _, o := range bids {
		ev.Bids = append(ev.Bids, orderInfo(o))
	}
	for _, o := range asks {
		ev.Asks = append(ev.Asks, orderInfo(o))
	}
	s.hub.BroadcastToChannel("book:"+ticker, ev)
}

// tradeHistory feeds websocket replay: all fills for a trade channel
// from the beginning of history.
func (s *Server) tradeHistory(ticker string) [][]byte {
	fills, err := s.app.TradesSince(0, ticker, historyPageLimit)
	if err != nil {
		s.log.Warnw("trade_replay", "ticker", ticker, "err", err)
		return nil
	}
	var out [][]byte
	for _, f := range fills {
		data, err := json.Marshal(WSTradeEvent{Type: "trade", Trade: tradeInfo(f)})
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

func orderInfo(o orderbook.Order) OrderInfo {
	return OrderInfo{
		ID:     o.ID,
		Trader: o.Trader.Hex(),
		Ticker: o.Ticker,
		Side:   o.Side.String(),
		Price:  o.Price,
		Amount: o.Amount,
		Filled: o.Filled,
	}
}

func tradeInfo(f engine.Fill) TradeInfo {
	return TradeInfo{
		Seq:          f.Seq,
		Ticker:       f.Ticker,
		Buyer:        f.Buyer.Hex(),
		Seller:       f.Seller.Hex(),
		MakerOrderID: f.MakerOrderID,
		Price:        f.Price,
		Qty:          f.Qty,
		Timestamp:    f.Timestamp,
	}
}

func (s *Server) decodeTransfer(w http.ResponseWriter, r *http.Request) (TransferRequest, common.Address, bool) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return req, common.Address{}, false
	}
	if !common.IsHexAddress(req.Trader) {
		respondError(w, http.StatusBadRequest, "invalid trader address")
		return req, common.Address{}, false
	}
	return req, common.HexToAddress(req.Trader), true
}

// statusFor maps engine and ledger errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrQuoteNotTradable),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrTokenBalanceTooLow),
		errors.Is(err, engine.ErrQuoteBalanceTooLow),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, registry.ErrUnknownToken):
		return "unknown_token"
	case errors.Is(err, engine.ErrQuoteNotTradable):
		return "quote_not_tradable"
	case errors.Is(err, engine.ErrTokenBalanceTooLow):
		return "token_balance"
	case errors.Is(err, engine.ErrQuoteBalanceTooLow):
		return "quote_balance"
	case errors.Is(err, engine.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "other"
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
