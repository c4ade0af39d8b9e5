package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// balanceRecord is the stored form of one (trader, token) balance.
type balanceRecord struct {
	Trader common.Address `json:"trader"`
	Ticker string         `json:"ticker"`
	Amount int64          `json:"amount"`
}

// Store persists balances in Pebble. All calls happen under the
// Ledger's mutex, so the store itself needs no locking.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MemTableSize: 32 << 20,
		MaxOpenFiles: 1000,
		BytesPerSync: 512 << 10,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBalance writes one balance entry synchronously.
func (s *Store) SaveBalance(trader common.Address, ticker string, amount int64) error {
	data, err := json.Marshal(balanceRecord{Trader: trader, Ticker: ticker, Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal balance: %w", err)
	}
	if err := s.db.Set(balanceDBKey(trader, ticker), data, pebble.Sync); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// LoadBalance reads one balance entry. A missing key reads as zero.
func (s *Store) LoadBalance(trader common.Address, ticker string) (int64, error) {
	data, closer, err := s.db.Get(balanceDBKey(trader, ticker))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	defer closer.Close()

	var rec balanceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("unmarshal balance: %w", err)
	}
	return rec.Amount, nil
}

// LoadTokenBalances scans every stored balance for one token.
func (s *Store) LoadTokenBalances(ticker string) (map[common.Address]int64, error) {
	prefix := balancePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("balance iter: %w", err)
	}
	defer iter.Close()

	out := make(map[common.Address]int64)
	for iter.First(); iter.Valid(); iter.Next() {
		var rec balanceRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip unreadable entries
		}
		if rec.Ticker == ticker {
			out[rec.Trader] = rec.Amount
		}
	}
	return out, nil
}

// Batch groups balance writes so both sides of a transfer commit
// atomically.
type Batch struct {
	batch *pebble.Batch
}

// NewBatch creates a batch writer.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// SaveBalance adds one balance write to the batch.
func (b *Batch) SaveBalance(trader common.Address, ticker string, amount int64) error {
	data, err := json.Marshal(balanceRecord{Trader: trader, Ticker: ticker, Amount: amount})
	if err != nil {
		return err
	}
	return b.batch.Set(balanceDBKey(trader, ticker), data, nil)
}

// Commit writes the batch atomically.
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Close discards the batch without committing.
func (b *Batch) Close() error {
	return b.batch.Close()
}
