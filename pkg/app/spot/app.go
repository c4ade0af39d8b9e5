// Package spot wires the exchange core into one App: the single entry
// point callers go through for deposits, withdrawals, orders and
// queries.
package spot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parkmin/tokenex/pkg/app/core/engine"
	"github.com/parkmin/tokenex/pkg/app/core/ledger"
	"github.com/parkmin/tokenex/pkg/app/core/orderbook"
	"github.com/parkmin/tokenex/pkg/app/core/registry"
	"github.com/parkmin/tokenex/pkg/custody"
	"github.com/parkmin/tokenex/pkg/util"
)

// App owns the registry, ledger, engine and custody boundary.
type App struct {
	reg    *registry.Registry
	led    *ledger.Ledger
	eng    *engine.Engine
	trades *engine.TradeLog
	cust   custody.Transferer
	log    *zap.SugaredLogger
}

// New opens the ledger and trade log under dataDir and assembles the
// app. The registry is expected to be populated by the caller before
// any orders arrive.
func New(dataDir string, reg *registry.Registry, cust custody.Transferer, clock util.Clock, log *zap.SugaredLogger) (*App, error) {
	led, err := ledger.Open(filepath.Join(dataDir, "ledger"))
	if err != nil {
		return nil, err
	}
	trades, err := engine.OpenTradeLog(filepath.Join(dataDir, "trades"))
	if err != nil {
		led.Close()
		return nil, err
	}
	eng, err := engine.New(reg, led, trades, clock, log)
	if err != nil {
		trades.Close()
		led.Close()
		return nil, err
	}
	return &App{reg: reg, led: led, eng: eng, trades: trades, cust: cust, log: log}, nil
}

// Close releases the databases.
func (a *App) Close() error {
	tradeErr := a.trades.Close()
	if err := a.led.Close(); err != nil {
		return err
	}
	return tradeErr
}

// Engine exposes the matching engine (fill sinks, depth queries).
func (a *App) Engine() *engine.Engine { return a.eng }

// Registry exposes the token registry.
func (a *App) Registry() *registry.Registry { return a.reg }

// Deposit pulls amount of a token from the trader's external holding
// into custody, then credits the ledger. The ledger is only credited
// once the external transfer has succeeded.
func (a *App) Deposit(ctx context.Context, trader common.Address, ticker string, amount int64) error {
	tok, err := a.reg.Resolve(ticker)
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("deposit %d: %w", amount, ledger.ErrInvalidAmount)
	}

	if err := a.cust.TransferIn(ctx, trader, tok.Handle, amount); err != nil {
		return fmt.Errorf("deposit %s: %w", ticker, err)
	}
	if err := a.led.Credit(trader, ticker, amount); err != nil {
		return err
	}

	a.log.Infow("deposit", "trader", trader.Hex(), "ticker", ticker, "amount", amount)
	return nil
}

// Withdraw debits the ledger, then pays the trader out through
// custody. If the external transfer fails the debit is compensated,
// so the ledger never stays debited without a matching payout.
func (a *App) Withdraw(ctx context.Context, trader common.Address, ticker string, amount int64) error {
	tok, err := a.reg.Resolve(ticker)
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("withdraw %d: %w", amount, ledger.ErrInvalidAmount)
	}

	if err := a.led.Debit(trader, ticker, amount); err != nil {
		return err
	}
	if err := a.cust.TransferOut(ctx, trader, tok.Handle, amount); err != nil {
		if rbErr := a.led.Credit(trader, ticker, amount); rbErr != nil {
			a.log.Errorw("withdraw_compensation_failed",
				"trader", trader.Hex(), "ticker", ticker, "amount", amount, "err", rbErr)
		}
		return fmt.Errorf("withdraw %s: %w", ticker, err)
	}

	a.log.Infow("withdraw", "trader", trader.Hex(), "ticker", ticker, "amount", amount)
	return nil
}

// CreateLimitOrder submits a limit order.
func (a *App) CreateLimitOrder(trader common.Address, ticker string, amount, price int64, side orderbook.Side) (engine.Result, error) {
	return a.eng.SubmitLimit(trader, ticker, amount, price, side)
}

// CreateMarketOrder submits a market order.
func (a *App) CreateMarketOrder(trader common.Address, ticker string, amount int64, side orderbook.Side) (engine.Result, error) {
	return a.eng.SubmitMarket(trader, ticker, amount, side)
}

// Orders returns the ordered resting orders for one side of a book.
func (a *App) Orders(ticker string, side orderbook.Side) ([]orderbook.Order, error) {
	return a.eng.Orders(ticker, side)
}

// BalanceOf returns a trader's custodial balance; unknown pairs are 0.
func (a *App) BalanceOf(trader common.Address, ticker string) int64 {
	return a.led.BalanceOf(trader, ticker)
}

// TotalSupply returns the ledger-wide balance for a token.
func (a *App) TotalSupply(ticker string) (int64, error) {
	return a.led.TotalSupply(ticker)
}

// Tokens lists the registered tokens.
func (a *App) Tokens() []registry.Token {
	return a.reg.List()
}

// RecentTrades returns the latest fills for a token, newest first.
func (a *App) RecentTrades(ticker string, limit int) ([]engine.Fill, error) {
	return a.eng.RecentTrades(ticker, limit)
}

// TradesSince replays fills from a sequence number, oldest first.
// Sequence 0 replays the whole history.
func (a *App) TradesSince(seq uint64, ticker string, limit int) ([]engine.Fill, error) {
	return a.eng.TradesSince(seq, ticker, limit)
}
