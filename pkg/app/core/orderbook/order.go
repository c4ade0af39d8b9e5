package orderbook

import "github.com/ethereum/go-ethereum/common"

// Side of the book an order sits on.
type Side int8

const (
	Buy  Side = 0
	Sell Side = 1
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the side a taker matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide parses "BUY"/"SELL" (case-sensitive, as the wire format).
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	}
	return 0, false
}

// Order is a resting limit order. IDs are assigned from a single
// monotonic counter at creation and double as the time-priority
// tie-breaker; they are never reused. Filled only grows, never past
// Amount, and an order leaves the book the moment Filled == Amount.
type Order struct {
	ID     uint64         `json:"id"`
	Trader common.Address `json:"trader"`
	Ticker string         `json:"ticker"`
	Side   Side           `json:"side"`
	Price  int64          `json:"price"`  // quote units per base unit
	Amount int64          `json:"amount"` // requested quantity
	Filled int64          `json:"filled"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Amount - o.Filled
}
