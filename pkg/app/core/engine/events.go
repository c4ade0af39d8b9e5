package engine

import "github.com/ethereum/go-ethereum/common"

// Fill is one executed trade: a taker matched against a single resting
// order at the resting order's price. Sequence numbers are engine-wide
// and strictly increasing, so a consumer that replays the trade log
// and then follows the live feed sees every fill exactly once, in
// order.
type Fill struct {
	Seq          uint64         `json:"seq"`
	Ticker       string         `json:"ticker"`
	Buyer        common.Address `json:"buyer"`
	Seller       common.Address `json:"seller"`
	MakerOrderID uint64         `json:"makerOrderId"`
	Price        int64          `json:"price"`
	Qty          int64          `json:"qty"`
	Timestamp    int64          `json:"ts"` // unix milliseconds
}

// FillSink receives fills after a submission has committed. Publish
// must not block: sinks that do I/O buffer internally and drop or
// queue on their own.
type FillSink interface {
	Publish(Fill)
}
