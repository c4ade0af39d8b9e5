package orderbook

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	trader1 = common.HexToAddress("0x1100000000000000000000000000000000000000")
	trader2 = common.HexToAddress("0x2200000000000000000000000000000000000000")
)

func limitOrder(id uint64, trader common.Address, side Side, price, amount int64) *Order {
	return &Order{ID: id, Trader: trader, Ticker: "REP", Side: side, Price: price, Amount: amount}
}

func TestBidOrderingDescendingPrice(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Buy, 11, 10))
	b.Insert(limitOrder(2, trader2, Buy, 10, 10))
	b.Insert(limitOrder(3, trader2, Buy, 9, 10))

	snap := b.Snapshot(Buy)
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	want := []int64{11, 10, 9}
	for i, o := range snap {
		if o.Price != want[i] {
			t.Errorf("snap[%d].Price = %d, want %d", i, o.Price, want[i])
		}
	}
}

func TestAskOrderingAscendingPrice(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Sell, 12, 5))
	b.Insert(limitOrder(2, trader1, Sell, 10, 5))
	b.Insert(limitOrder(3, trader1, Sell, 11, 5))

	snap := b.Snapshot(Sell)
	want := []int64{10, 11, 12}
	for i, o := range snap {
		if o.Price != want[i] {
			t.Errorf("snap[%d].Price = %d, want %d", i, o.Price, want[i])
		}
	}
}

func TestEqualPricePreservesInsertionOrder(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Buy, 10, 5))
	b.Insert(limitOrder(2, trader2, Buy, 10, 5))
	b.Insert(limitOrder(3, trader1, Buy, 10, 5))

	snap := b.Snapshot(Buy)
	for i, wantID := range []uint64{1, 2, 3} {
		if snap[i].ID != wantID {
			t.Errorf("snap[%d].ID = %d, want %d", i, snap[i].ID, wantID)
		}
	}
}

func TestFrontIsBestPriceOldestFirst(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Buy, 10, 5))
	b.Insert(limitOrder(2, trader2, Buy, 11, 5))

	front, ok := b.Front(Buy)
	if !ok {
		t.Fatal("expected a front order")
	}
	if front.ID != 2 {
		t.Errorf("front.ID = %d, want 2 (best bid)", front.ID)
	}

	if _, ok := b.Front(Sell); ok {
		t.Error("empty side should have no front")
	}
}

func TestFillRemovesFullyMatchedOrder(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Sell, 10, 6))
	b.Insert(limitOrder(2, trader2, Sell, 10, 4))

	b.Fill(Sell, 2)
	front, _ := b.Front(Sell)
	if front.ID != 1 || front.Filled != 2 {
		t.Errorf("front = order %d filled %d, want order 1 filled 2", front.ID, front.Filled)
	}

	b.Fill(Sell, 4)
	front, _ = b.Front(Sell)
	if front.ID != 2 {
		t.Errorf("front.ID = %d, want 2 after first order fully matched", front.ID)
	}
	if b.Depth(Sell) != 1 {
		t.Errorf("depth = %d, want 1", b.Depth(Sell))
	}

	b.Fill(Sell, 4)
	if _, ok := b.Front(Sell); ok {
		t.Error("book should be empty")
	}
	if b.Depth(Sell) != 0 {
		t.Errorf("depth = %d, want 0", b.Depth(Sell))
	}
}

func TestFilledNeverExceedsAmount(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Buy, 10, 5))

	b.Fill(Buy, 3)
	b.Fill(Buy, 2)

	snap := b.Snapshot(Buy)
	if len(snap) != 0 {
		t.Fatalf("fully matched order still in book: %+v", snap)
	}
}

func TestSnapshotDoesNotAliasBook(t *testing.T) {
	b := NewBook()
	b.Insert(limitOrder(1, trader1, Buy, 10, 5))

	snap := b.Snapshot(Buy)
	snap[0].Filled = 99

	again := b.Snapshot(Buy)
	if again[0].Filled != 0 {
		t.Errorf("mutating a snapshot leaked into the book: filled = %d", again[0].Filled)
	}
}

func TestSideHelpers(t *testing.T) {
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Error("Opposite is wrong")
	}
	if s, ok := ParseSide("BUY"); !ok || s != Buy {
		t.Error("ParseSide BUY failed")
	}
	if s, ok := ParseSide("SELL"); !ok || s != Sell {
		t.Error("ParseSide SELL failed")
	}
	if _, ok := ParseSide("buy"); ok {
		t.Error("ParseSide should be case-sensitive")
	}
}
