package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parkmin/tokenex/pkg/app/core/ledger"
	"github.com/parkmin/tokenex/pkg/app/core/orderbook"
	"github.com/parkmin/tokenex/pkg/app/core/registry"
	"github.com/parkmin/tokenex/pkg/util"
)

// Result is the terminal outcome of an accepted submission. A rejected
// submission returns an error instead and leaves no trace.
type Result struct {
	OrderID   uint64           `json:"orderId,omitempty"` // limit orders only
	Ticker    string           `json:"ticker"`
	Side      orderbook.Side   `json:"-"`
	Requested int64            `json:"requested"`
	Filled    int64            `json:"filled"`
	Fills     []Fill           `json:"fills,omitempty"`
	Resting   *orderbook.Order `json:"resting,omitempty"`
}

// Engine admits orders, matches them against the books and moves
// balances on every fill.
//
// One submission runs to completion under its token's lock: admission
// checks, the matching loop and any resting insertion are a single
// unit, and two submissions against the same token never interleave.
// The ledger has its own finer lock, so submissions on different
// tokens may touch a shared trader's quote balance concurrently; the
// matching loop therefore treats a failed fill transfer as "stop
// here" rather than assuming its admission check still holds.
type Engine struct {
	reg    *registry.Registry
	led    *ledger.Ledger
	trades *TradeLog
	clock  util.Clock
	log    *zap.SugaredLogger

	mapMu sync.Mutex
	books map[string]*orderbook.Book
	locks map[string]*sync.Mutex

	idMu         sync.Mutex
	nextOrderID  uint64
	nextTradeSeq uint64

	sinkMu sync.RWMutex
	sinks  []FillSink
}

// New creates an engine, recovering ID counters from the trade log.
func New(reg *registry.Registry, led *ledger.Ledger, trades *TradeLog, clock util.Clock, log *zap.SugaredLogger) (*Engine, error) {
	orderID, tradeSeq, err := trades.LoadCounters()
	if err != nil {
		return nil, fmt.Errorf("recover counters: %w", err)
	}
	return &Engine{
		reg:          reg,
		led:          led,
		trades:       trades,
		clock:        clock,
		log:          log,
		books:        make(map[string]*orderbook.Book),
		locks:        make(map[string]*sync.Mutex),
		nextOrderID:  orderID,
		nextTradeSeq: tradeSeq,
	}, nil
}

// AddSink registers a fill consumer. Sinks see fills after the
// submission that produced them has committed to the trade log.
func (e *Engine) AddSink(s FillSink) {
	e.sinkMu.Lock()
	e.sinks = append(e.sinks, s)
	e.sinkMu.Unlock()
}

func (e *Engine) publish(fills []Fill) {
	e.sinkMu.RLock()
	defer e.sinkMu.RUnlock()
	for _, sink := range e.sinks {
		for _, f := range fills {
			sink.Publish(f)
		}
	}
}

// bookFor returns the book and submission lock for a token, creating
// both on first use. Only tradable tokens ever get a book.
func (e *Engine) bookFor(ticker string) (*orderbook.Book, *sync.Mutex) {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	book, ok := e.books[ticker]
	if !ok {
		book = orderbook.NewBook()
		e.books[ticker] = book
		e.locks[ticker] = &sync.Mutex{}
	}
	return book, e.locks[ticker]
}

func (e *Engine) nextID() uint64 {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	id := e.nextOrderID
	e.nextOrderID++
	return id
}

func (e *Engine) nextSeq() uint64 {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	seq := e.nextTradeSeq
	e.nextTradeSeq++
	return seq
}

func (e *Engine) counters() (uint64, uint64) {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	return e.nextOrderID, e.nextTradeSeq
}

// admit runs the checks shared by both order kinds. Market buys pass
// price = 0: their quote sufficiency is enforced fill by fill because
// the clearing price is unknown until the book is consulted.
func (e *Engine) admit(trader common.Address, ticker string, amount, price int64, side orderbook.Side, market bool) error {
	if _, err := e.reg.Resolve(ticker); err != nil {
		return err
	}
	if e.reg.IsQuote(ticker) {
		return ErrQuoteNotTradable
	}
	if amount <= 0 {
		return fmt.Errorf("order amount %d: %w", amount, ErrInvalidAmount)
	}
	if !market && price <= 0 {
		return fmt.Errorf("order price %d: %w", price, ErrInvalidAmount)
	}

	if side == orderbook.Sell {
		if e.led.BalanceOf(trader, ticker) < amount {
			return ErrTokenBalanceTooLow
		}
		return nil
	}
	// BUY
	if market {
		if e.led.BalanceOf(trader, e.reg.Quote()) <= 0 {
			return ErrQuoteBalanceTooLow
		}
		return nil
	}
	// price*amount must not wrap around; an unrepresentable cost is
	// beyond any balance.
	if price > math.MaxInt64/amount {
		return ErrQuoteBalanceTooLow
	}
	if e.led.BalanceOf(trader, e.reg.Quote()) < price*amount {
		return ErrQuoteBalanceTooLow
	}
	return nil
}

// SubmitLimit admits a limit order, matches it against eligible
// counter-orders and rests any remainder at its original limit price.
func (e *Engine) SubmitLimit(trader common.Address, ticker string, amount, price int64, side orderbook.Side) (Result, error) {
	if err := e.admit(trader, ticker, amount, price, side, false); err != nil {
		return Result{}, err
	}

	book, lock := e.bookFor(ticker)
	lock.Lock()
	defer lock.Unlock()

	orderID := e.nextID()
	remaining := amount
	fills := e.matchLoop(trader, ticker, side, &remaining, price, false, book)

	res := Result{
		OrderID:   orderID,
		Ticker:    ticker,
		Side:      side,
		Requested: amount,
		Filled:    amount - remaining,
		Fills:     fills,
	}

	if remaining > 0 {
		o := &orderbook.Order{
			ID:     orderID,
			Trader: trader,
			Ticker: ticker,
			Side:   side,
			Price:  price,
			Amount: amount,
			Filled: amount - remaining,
		}
		book.Insert(o)
		rest := *o
		res.Resting = &rest
	}

	if err := e.commit(fills); err != nil {
		return res, err
	}

	e.log.Infow("limit_order",
		"trader", trader.Hex(), "ticker", ticker, "side", side.String(),
		"amount", amount, "price", price, "filled", res.Filled, "order_id", orderID)
	return res, nil
}

// SubmitMarket admits a market order and matches it until the amount
// is filled or the opposite book is exhausted. A market order never
// rests: whatever cannot fill is dropped.
func (e *Engine) SubmitMarket(trader common.Address, ticker string, amount int64, side orderbook.Side) (Result, error) {
	if err := e.admit(trader, ticker, amount, 0, side, true); err != nil {
		return Result{}, err
	}

	book, lock := e.bookFor(ticker)
	lock.Lock()
	defer lock.Unlock()

	remaining := amount
	fills := e.matchLoop(trader, ticker, side, &remaining, 0, true, book)

	res := Result{
		Ticker:    ticker,
		Side:      side,
		Requested: amount,
		Filled:    amount - remaining,
		Fills:     fills,
	}

	if err := e.commit(fills); err != nil {
		return res, err
	}

	e.log.Infow("market_order",
		"trader", trader.Hex(), "ticker", ticker, "side", side.String(),
		"amount", amount, "filled", res.Filled)
	return res, nil
}

// matchLoop walks the opposite side of the book from the front,
// executing fills at each maker's price until the taker is filled, the
// book stops crossing, or (for a market buy) the taker's quote runs
// out. Fills already applied are final; the loop never rolls back.
func (e *Engine) matchLoop(trader common.Address, ticker string, side orderbook.Side, remaining *int64, limitPrice int64, market bool, book *orderbook.Book) []Fill {
	opposite := side.Opposite()
	quote := e.reg.Quote()

	var fills []Fill
	for *remaining > 0 {
		counter, ok := book.Front(opposite)
		if !ok {
			break
		}
		if !market {
			if side == orderbook.Buy && counter.Price > limitPrice {
				break
			}
			if side == orderbook.Sell && counter.Price < limitPrice {
				break
			}
		}

		qty := min(*remaining, counter.Remaining())
		if counter.Price > math.MaxInt64/qty {
			// The fill's cost would wrap around int64. Only a market buy
			// against an extreme ask can get here; nothing can pay it.
			break
		}
		cost := qty * counter.Price

		var buyer, seller common.Address
		if side == orderbook.Buy {
			buyer, seller = trader, counter.Trader
			if market && e.led.BalanceOf(trader, quote) < cost {
				break // quote ran out; drop the unmatched remainder
			}
		} else {
			buyer, seller = counter.Trader, trader
		}

		if err := e.applyFill(buyer, seller, ticker, quote, qty, cost); err != nil {
			// A counterparty's balance moved since its own admission
			// check (a concurrent submission on another token can drain
			// the shared quote balance). The fill did not apply; stop.
			e.log.Warnw("fill_aborted", "ticker", ticker, "maker_order", counter.ID, "err", err)
			break
		}

		f := Fill{
			Seq:          e.nextSeq(),
			Ticker:       ticker,
			Buyer:        buyer,
			Seller:       seller,
			MakerOrderID: counter.ID,
			Price:        counter.Price,
			Qty:          qty,
			Timestamp:    e.clock.Now().UnixMilli(),
		}
		fills = append(fills, f)

		book.Fill(opposite, qty)
		*remaining -= qty
	}
	return fills
}

// applyFill moves the two legs of one fill: cost in quote currency
// from buyer to seller, qty of the token from seller to buyer. If the
// second leg fails the first is compensated, so no half-applied fill
// is ever observable.
func (e *Engine) applyFill(buyer, seller common.Address, ticker, quote string, qty, cost int64) error {
	if err := e.led.Transfer(buyer, seller, quote, cost); err != nil {
		return err
	}
	if err := e.led.Transfer(seller, buyer, ticker, qty); err != nil {
		if rbErr := e.led.Transfer(seller, buyer, quote, cost); rbErr != nil {
			e.log.Errorw("fill_compensation_failed", "err", rbErr)
		}
		return err
	}
	return nil
}

// commit persists the submission's fills and counters, then fans the
// fills out to sinks.
func (e *Engine) commit(fills []Fill) error {
	orderID, tradeSeq := e.counters()
	if err := e.trades.Append(fills, orderID, tradeSeq); err != nil {
		return fmt.Errorf("append trade log: %w", err)
	}
	if len(fills) > 0 {
		e.publish(fills)
	}
	return nil
}

// Orders returns an ordered snapshot of one side of a token's book.
func (e *Engine) Orders(ticker string, side orderbook.Side) ([]orderbook.Order, error) {
	if _, err := e.reg.Resolve(ticker); err != nil {
		return nil, err
	}
	if e.reg.IsQuote(ticker) {
		return nil, ErrQuoteNotTradable
	}

	book, lock := e.bookFor(ticker)
	lock.Lock()
	defer lock.Unlock()
	return book.Snapshot(side), nil
}

// Depth returns the number of resting orders on one side of a book.
func (e *Engine) Depth(ticker string, side orderbook.Side) int {
	book, lock := e.bookFor(ticker)
	lock.Lock()
	defer lock.Unlock()
	return book.Depth(side)
}

// TradesSince replays fills with Seq >= seq, oldest first.
func (e *Engine) TradesSince(seq uint64, ticker string, limit int) ([]Fill, error) {
	return e.trades.Since(seq, ticker, limit)
}

// RecentTrades returns the latest fills for a token, newest first.
func (e *Engine) RecentTrades(ticker string, limit int) ([]Fill, error) {
	return e.trades.Recent(ticker, limit)
}
