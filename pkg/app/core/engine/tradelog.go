package engine

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Key schema: trades append under zero-padded sequence keys so a
// prefix scan yields them in execution order, and one meta key carries
// the counters the engine must not reuse across restarts.
const (
	prefixTrade = "trade:"
	keyCounters = "meta:counters"
)

func tradeDBKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixTrade, seq))
}

func tradePrefix() []byte {
	return []byte(prefixTrade)
}

func tradeUpperBound() []byte {
	bound := []byte(prefixTrade)
	bound[len(bound)-1]++
	return bound
}

type counters struct {
	NextOrderID  uint64 `json:"nextOrderId"`
	NextTradeSeq uint64 `json:"nextTradeSeq"`
}

// TradeLog is the append-only history of fills, replayable from the
// beginning. It also persists the order-ID and trade-sequence
// counters, which makes numbering survive a restart.
type TradeLog struct {
	db *pebble.DB
}

// OpenTradeLog opens (or creates) the log at the given path.
func OpenTradeLog(dbPath string) (*TradeLog, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{
		Cache:        pebble.NewCache(32 << 20),
		MemTableSize: 16 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("open trade log at %s: %w", dbPath, err)
	}
	return &TradeLog{db: db}, nil
}

// Close closes the database.
func (tl *TradeLog) Close() error {
	return tl.db.Close()
}

// LoadCounters returns the persisted counters, starting both at 1 on a
// fresh database.
func (tl *TradeLog) LoadCounters() (orderID, tradeSeq uint64, err error) {
	data, closer, err := tl.db.Get([]byte(keyCounters))
	if err == pebble.ErrNotFound {
		return 1, 1, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("load counters: %w", err)
	}
	defer closer.Close()

	var c counters
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, 0, fmt.Errorf("unmarshal counters: %w", err)
	}
	return c.NextOrderID, c.NextTradeSeq, nil
}

// SaveCounters persists the counters.
func (tl *TradeLog) SaveCounters(orderID, tradeSeq uint64) error {
	data, err := json.Marshal(counters{NextOrderID: orderID, NextTradeSeq: tradeSeq})
	if err != nil {
		return err
	}
	return tl.db.Set([]byte(keyCounters), data, pebble.Sync)
}

// Append writes the fills of one submission and the updated counters
// in a single atomic batch.
func (tl *TradeLog) Append(fills []Fill, orderID, tradeSeq uint64) error {
	batch := tl.db.NewBatch()
	defer batch.Close()

	for _, f := range fills {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal fill: %w", err)
		}
		if err := batch.Set(tradeDBKey(f.Seq), data, nil); err != nil {
			return err
		}
	}
	data, err := json.Marshal(counters{NextOrderID: orderID, NextTradeSeq: tradeSeq})
	if err != nil {
		return err
	}
	if err := batch.Set([]byte(keyCounters), data, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Since returns up to limit fills with Seq >= seq, oldest first,
// optionally filtered by ticker ("" means all tokens). seq 0 replays
// from the beginning of history.
func (tl *TradeLog) Since(seq uint64, ticker string, limit int) ([]Fill, error) {
	iter, err := tl.db.NewIter(&pebble.IterOptions{
		LowerBound: tradeDBKey(seq),
		UpperBound: tradeUpperBound(),
	})
	if err != nil {
		return nil, fmt.Errorf("trade iter: %w", err)
	}
	defer iter.Close()

	var fills []Fill
	for iter.First(); iter.Valid() && len(fills) < limit; iter.Next() {
		var f Fill
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			continue // skip unreadable entries
		}
		if ticker != "" && f.Ticker != ticker {
			continue
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// Recent returns up to limit fills for a ticker, newest first.
func (tl *TradeLog) Recent(ticker string, limit int) ([]Fill, error) {
	iter, err := tl.db.NewIter(&pebble.IterOptions{
		LowerBound: tradePrefix(),
		UpperBound: tradeUpperBound(),
	})
	if err != nil {
		return nil, fmt.Errorf("trade iter: %w", err)
	}
	defer iter.Close()

	var fills []Fill
	for iter.Last(); iter.Valid() && len(fills) < limit; iter.Prev() {
		var f Fill
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			continue
		}
		if ticker != "" && f.Ticker != ticker {
			continue
		}
		fills = append(fills, f)
	}
	return fills, nil
}
