package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownToken is returned when a ticker was never registered.
// The message matches what the exchange reports to callers.
var ErrUnknownToken = errors.New("this token doesn't exist")

// Token maps a short ticker to the external contract that custody
// moves funds through. Tokens are registered once at setup and never
// change afterwards.
type Token struct {
	Ticker string         `json:"ticker"`
	Handle common.Address `json:"handle"`
}

// Registry is the set of tokens the exchange knows about, including
// the quote currency. The quote currency resolves like any other token
// (deposits and withdrawals need it) but is flagged so the engine can
// refuse to open a book for it.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]Token
	quote  string
}

// New creates a registry whose quote currency is the given ticker.
// The quote token itself still has to be registered.
func New(quoteTicker string) *Registry {
	return &Registry{
		tokens: make(map[string]Token),
		quote:  quoteTicker,
	}
}

// Register adds a token. Returns an error on an empty ticker or a
// duplicate registration.
func (r *Registry) Register(ticker string, handle common.Address) error {
	if ticker == "" {
		return fmt.Errorf("empty ticker")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[ticker]; exists {
		return fmt.Errorf("token %s already registered", ticker)
	}
	r.tokens[ticker] = Token{Ticker: ticker, Handle: handle}
	return nil
}

// Resolve looks a ticker up. Every operation that references a token
// goes through here first.
func (r *Registry) Resolve(ticker string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tok, exists := r.tokens[ticker]
	if !exists {
		return Token{}, ErrUnknownToken
	}
	return tok, nil
}

// IsQuote reports whether ticker is the quote currency.
func (r *Registry) IsQuote(ticker string) bool {
	return ticker == r.quote
}

// Quote returns the quote currency ticker.
func (r *Registry) Quote() string {
	return r.quote
}

// List returns all registered tokens sorted by ticker.
func (r *Registry) List() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Token, 0, len(r.tokens))
	for _, tok := range r.tokens {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
