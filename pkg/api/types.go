package api

// TokenInfo describes one registered token.
type TokenInfo struct {
	Ticker string `json:"ticker"`
	Handle string `json:"handle"`
}

// OrderInfo is one resting order in a book snapshot.
type OrderInfo struct {
	ID     uint64 `json:"id"`
	Trader string `json:"trader"`
	Ticker string `json:"ticker"`
	Side   string `json:"side"`
	Price  int64  `json:"price"`
	Amount int64  `json:"amount"`
	Filled int64  `json:"filled"`
}

// BookSnapshot is one side of a book in matching order.
type BookSnapshot struct {
	Ticker    string      `json:"ticker"`
	Side      string      `json:"side"`
	Orders    []OrderInfo `json:"orders"`
	Timestamp int64       `json:"timestamp"`
}

// BalanceInfo is a trader's custodial balance for one token.
type BalanceInfo struct {
	Trader  string `json:"trader"`
	Ticker  string `json:"ticker"`
	Balance int64  `json:"balance"`
}

// TradeInfo is one executed fill.
type TradeInfo struct {
	Seq          uint64 `json:"seq"`
	Ticker       string `json:"ticker"`
	Buyer        string `json:"buyer"`
	Seller       string `json:"seller"`
	MakerOrderID uint64 `json:"makerOrderId"`
	Price        int64  `json:"price"`
	Qty          int64  `json:"qty"`
	Timestamp    int64  `json:"ts"`
}

// TransferRequest is the body of deposit and withdraw calls.
type TransferRequest struct {
	Trader string `json:"trader"`
	Ticker string `json:"ticker"`
	Amount int64  `json:"amount"`
}

// OrderRequest is the body of an order submission. Type is "limit" or
// "market"; price is ignored for market orders.
type OrderRequest struct {
	Trader string `json:"trader"`
	Ticker string `json:"ticker"`
	Type   string `json:"type"`
	Side   string `json:"side"`
	Amount int64  `json:"amount"`
	Price  int64  `json:"price,omitempty"`
}

// OrderResponse reports the outcome of an accepted submission.
type OrderResponse struct {
	OrderID   uint64      `json:"orderId,omitempty"`
	Ticker    string      `json:"ticker"`
	Side      string      `json:"side"`
	Requested int64       `json:"requested"`
	Filled    int64       `json:"filled"`
	Fills     []TradeInfo `json:"fills,omitempty"`
	Resting   *OrderInfo  `json:"resting,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WSSubscribeRequest is a websocket subscription message. Channels are
// "trades:<TICKER>" and "book:<TICKER>". With Replay set, trade
// channels send the full history before live fills.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
	Replay   bool     `json:"replay,omitempty"`
}

// WSTradeEvent wraps a fill for the websocket feed.
type WSTradeEvent struct {
	Type  string    `json:"type"` // "trade"
	Trade TradeInfo `json:"trade"`
}

// WSBookEvent wraps a book snapshot for the websocket feed.
type WSBookEvent struct {
	Type   string      `json:"type"` // "book"
	Ticker string      `json:"ticker"`
	Bids   []OrderInfo `json:"bids"`
	Asks   []OrderInfo `json:"asks"`
}
