// Package custody is the boundary to the external wallet layer that
// actually holds tokens. The exchange only ever sees it through the
// Transferer interface: an all-or-nothing move between a trader's
// external holding and the exchange's custody.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTransferFailed is returned when the external layer declines a
// transfer. Callers treat the whole deposit/withdraw as failed.
var ErrTransferFailed = errors.New("external transfer failed")

// Transferer moves tokens between a trader's external holding and the
// exchange. Both calls are all-or-nothing: on error, nothing moved.
type Transferer interface {
	// TransferIn pulls amount of a token from the trader into custody.
	TransferIn(ctx context.Context, trader common.Address, token common.Address, amount int64) error
	// TransferOut pays amount of a token from custody back to the trader.
	TransferOut(ctx context.Context, trader common.Address, token common.Address, amount int64) error
}

type bankKey struct {
	Trader common.Address
	Token  common.Address
}

// Bank is an in-memory Transferer for the devnet and tests: it tracks
// each trader's external holdings and refuses transfers they cannot
// cover, which is exactly the behavior the real wallet layer promises.
type Bank struct {
	mu       sync.Mutex
	holdings map[bankKey]int64
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{holdings: make(map[bankKey]int64)}
}

// Seed gives a trader an external holding, like a testnet faucet.
func (b *Bank) Seed(trader common.Address, token common.Address, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holdings[bankKey{Trader: trader, Token: token}] += amount
}

// HoldingOf returns a trader's external holding of a token.
func (b *Bank) HoldingOf(trader common.Address, token common.Address) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holdings[bankKey{Trader: trader, Token: token}]
}

// TransferIn implements Transferer.
func (b *Bank) TransferIn(_ context.Context, trader common.Address, token common.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer in %d: %w", amount, ErrTransferFailed)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := bankKey{Trader: trader, Token: token}
	if b.holdings[key] < amount {
		return fmt.Errorf("holding too low: %w", ErrTransferFailed)
	}
	b.holdings[key] -= amount
	return nil
}

// TransferOut implements Transferer.
func (b *Bank) TransferOut(_ context.Context, trader common.Address, token common.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer out %d: %w", amount, ErrTransferFailed)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.holdings[bankKey{Trader: trader, Token: token}] += amount
	return nil
}
