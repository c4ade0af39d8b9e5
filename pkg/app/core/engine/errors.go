package engine

import "errors"

// Admission failures. Every one of these is returned before any state
// has been touched; a rejected submission leaves ledger and book
// exactly as they were.
var (
	// ErrQuoteNotTradable rejects orders on the quote currency itself.
	ErrQuoteNotTradable = errors.New("cannot trade quote currency")

	// ErrTokenBalanceTooLow rejects a SELL whose trader does not hold
	// the full requested amount of the traded token.
	ErrTokenBalanceTooLow = errors.New("token balance is too low")

	// ErrQuoteBalanceTooLow rejects a BUY whose trader cannot cover the
	// order: price x amount for a limit, any positive balance for a
	// market order.
	ErrQuoteBalanceTooLow = errors.New("quote balance is too low")

	// ErrInvalidAmount rejects zero or negative amounts and prices.
	ErrInvalidAmount = errors.New("amount must be positive")
)
