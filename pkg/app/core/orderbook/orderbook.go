package orderbook

import (
	"container/heap"
	"sort"
)

// bookSide is one side of a book: FIFO queues keyed by price, with a
// heap over the prices for O(1) best-price lookup.
type bookSide struct {
	heap   *priceHeap
	levels map[int64][]*Order
}

func newBookSide(desc bool) *bookSide {
	return &bookSide{
		heap:   &priceHeap{desc: desc},
		levels: make(map[int64][]*Order),
	}
}

// Book holds the resting limit orders for one token, both sides.
//
// Its only contract: bids iterate in descending price, asks in
// ascending price, and orders at the same price keep arrival order.
//
// The book is a pure data structure. It does no locking and no
// matching; the engine serializes access per token and drives fills
// through Front/Fill.
type Book struct {
	bids *bookSide
	asks *bookSide
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		bids: newBookSide(true),
		asks: newBookSide(false),
	}
}

func (b *Book) side(s Side) *bookSide {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// Insert adds a resting limit order at the position its side's
// ordering dictates. Arrival order within a price level is preserved.
func (b *Book) Insert(o *Order) {
	s := b.side(o.Side)
	if len(s.levels[o.Price]) == 0 {
		heap.Push(s.heap, o.Price)
	}
	s.levels[o.Price] = append(s.levels[o.Price], o)
}

// Front returns the best resting order on a side: highest bid or
// lowest ask, oldest first within the price.
func (b *Book) Front(side Side) (*Order, bool) {
	s := b.side(side)
	if s.heap.Len() == 0 {
		return nil, false
	}
	return s.levels[s.heap.best()][0], true
}

// Fill advances the front order of a side by qty. When the order
// reaches its requested amount it is removed; a drained price level is
// dropped from the heap. Callers never fill past Remaining().
func (b *Book) Fill(side Side, qty int64) {
	front, ok := b.Front(side)
	if !ok {
		return
	}
	front.Filled += qty
	if front.Filled < front.Amount {
		return
	}

	// Fully matched: pop from its level.
	s := b.side(side)
	price := front.Price
	s.levels[price] = s.levels[price][1:]
	if len(s.levels[price]) == 0 {
		delete(s.levels, price)
		heap.Pop(s.heap)
	}
}

// Snapshot returns copies of a side's orders in book order. Mutating
// the result does not touch the book.
func (b *Book) Snapshot(side Side) []Order {
	s := b.side(side)

	prices := make([]int64, 0, len(s.levels))
	for p := range s.levels {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool {
		if side == Buy {
			return prices[i] > prices[j]
		}
		return prices[i] < prices[j]
	})

	var out []Order
	for _, p := range prices {
		for _, o := range s.levels[p] {
			out = append(out, *o)
		}
	}
	return out
}

// Depth returns the number of resting orders on a side.
func (b *Book) Depth(side Side) int {
	n := 0
	for _, level := range b.side(side).levels {
		n += len(level)
	}
	return n
}
