package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned by Debit and Transfer when the
	// source balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("balance too low")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

type balanceKey struct {
	Trader common.Address
	Ticker string
}

// balanceStore is what the ledger needs from its backing store.
// Satisfied by *Store.
type balanceStore interface {
	SaveBalance(trader common.Address, ticker string, amount int64) error
	LoadBalance(trader common.Address, ticker string) (int64, error)
	LoadTokenBalances(ticker string) (map[common.Address]int64, error)
	NewBatch() *Batch
	Close() error
}

// Ledger holds every trader's custodial balance per token. It is the
// source of truth for what a trader owns inside the exchange: the
// ledger-wide total per token only moves through Credit (deposit) and
// Debit (withdrawal), while Transfer between two traders sums to zero.
//
// Balances live in an in-memory map backed by a write-through Pebble
// store. Entries load lazily on first touch, so reopening a ledger on
// an existing database resumes where it left off.
type Ledger struct {
	mu       sync.RWMutex
	balances map[balanceKey]int64
	store    balanceStore
}

// Open opens (or creates) a ledger at the given database path.
func Open(dbPath string) (*Ledger, error) {
	store, err := NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	return &Ledger{
		balances: make(map[balanceKey]int64),
		store:    store,
	}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// getLocked returns the cached balance, loading it from the store on
// first access. Caller must hold l.mu.
func (l *Ledger) getLocked(trader common.Address, ticker string) int64 {
	key := balanceKey{Trader: trader, Ticker: ticker}
	if amt, ok := l.balances[key]; ok {
		return amt
	}
	amt, err := l.store.LoadBalance(trader, ticker)
	if err != nil {
		// Unreadable entry counts as zero; the store logs nothing here
		// because a missing key is the common case for new traders.
		amt = 0
	}
	l.balances[key] = amt
	return amt
}

func (l *Ledger) setLocked(trader common.Address, ticker string, amount int64) {
	l.balances[balanceKey{Trader: trader, Ticker: ticker}] = amount
}

// Credit increases a trader's balance.
func (l *Ledger) Credit(trader common.Address, ticker string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit %d: %w", amount, ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.getLocked(trader, ticker) + amount
	if err := l.store.SaveBalance(trader, ticker, next); err != nil {
		return err
	}
	l.setLocked(trader, ticker, next)
	return nil
}

// Debit decreases a trader's balance. Fails without mutating anything
// if the balance cannot cover the amount.
func (l *Ledger) Debit(trader common.Address, ticker string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit %d: %w", amount, ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	have := l.getLocked(trader, ticker)
	if have < amount {
		return ErrInsufficientBalance
	}
	next := have - amount
	if err := l.store.SaveBalance(trader, ticker, next); err != nil {
		return err
	}
	l.setLocked(trader, ticker, next)
	return nil
}

// Transfer moves amount from one trader to another in a single step.
// Either both balances change or neither does; the two store writes
// commit in one batch, and the cache is only touched after the commit
// succeeds. A transfer from a trader to themself nets to zero and is a
// validated no-op.
func (l *Ledger) Transfer(from, to common.Address, ticker string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer %d: %w", amount, ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.getLocked(from, ticker)
	if fromBal < amount {
		return ErrInsufficientBalance
	}
	if from == to {
		// Both legs land on the same entry; debit and credit cancel.
		return nil
	}
	toBal := l.getLocked(to, ticker)

	batch := l.store.NewBatch()
	defer batch.Close()
	if err := batch.SaveBalance(from, ticker, fromBal-amount); err != nil {
		return err
	}
	if err := batch.SaveBalance(to, ticker, toBal+amount); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	l.setLocked(from, ticker, fromBal-amount)
	l.setLocked(to, ticker, toBal+amount)
	return nil
}

// BalanceOf returns the trader's balance for a token. Unknown pairs
// read as zero; the query never fails.
func (l *Ledger) BalanceOf(trader common.Address, ticker string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(trader, ticker)
}

// TotalSupply sums every trader's balance for a token, scanning the
// store so entries never loaded into the cache still count.
func (l *Ledger) TotalSupply(ticker string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, err := l.store.LoadTokenBalances(ticker)
	if err != nil {
		return 0, err
	}
	// Cached entries override stored ones; an entry dirty in cache but
	// not yet read back from the store would otherwise double count.
	for key, amt := range l.balances {
		if key.Ticker == ticker {
			stored[key.Trader] = amt
		}
	}
	var total int64
	for _, amt := range stored {
		total += amt
	}
	return total, nil
}
