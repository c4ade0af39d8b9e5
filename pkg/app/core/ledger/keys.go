package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. Balances are prefix-scannable so supply audits
// can walk every entry without knowing the trader set up front.
const prefixBalance = "bal:"

// balanceDBKey returns the key for one (trader, token) balance.
// Format: "bal:{address}:{ticker}"
func balanceDBKey(trader common.Address, ticker string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, trader.Hex(), ticker))
}

// balancePrefix returns the prefix covering all balance entries.
func balancePrefix() []byte {
	return []byte(prefixBalance)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan:
// the prefix with its last byte incremented.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
