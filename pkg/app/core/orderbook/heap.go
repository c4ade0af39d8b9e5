package orderbook

// priceHeap keeps one side's price levels with the best price on top:
// descending for bids, ascending for asks. Manipulate it through
// container/heap; an empty heap is valid without Init.
type priceHeap struct {
	prices []int64
	desc   bool
}

func (h *priceHeap) Len() int { return len(h.prices) }

func (h *priceHeap) Less(i, j int) bool {
	if h.desc {
		return h.prices[i] > h.prices[j]
	}
	return h.prices[i] < h.prices[j]
}

func (h *priceHeap) Swap(i, j int) {
	h.prices[i], h.prices[j] = h.prices[j], h.prices[i]
}

func (h *priceHeap) Push(x interface{}) {
	h.prices = append(h.prices, x.(int64))
}

func (h *priceHeap) Pop() interface{} {
	n := len(h.prices)
	x := h.prices[n-1]
	h.prices = h.prices[:n-1]
	return x
}

// best returns the top price. Callers check Len first.
func (h *priceHeap) best() int64 {
	return h.prices[0]
}
