package params

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// TokenSpec is one configured token: ticker plus the external contract
// custody transfers through.
type TokenSpec struct {
	Ticker string
	Handle common.Address
}

type Config struct {
	// APIAddr is the REST/websocket listen address.
	APIAddr string
	// DataDir holds the Pebble databases (ledger, trade log).
	DataDir string
	// LogFile receives the JSON log tee; empty means stdout only.
	LogFile string
	// QuoteTicker is the currency every book is priced in. It must
	// appear in Tokens and is never tradable itself.
	QuoteTicker string
	// Tokens to register at boot, quote currency included.
	Tokens []TokenSpec
	// KafkaBrokers enables the fill-event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

func Default() Config {
	return Config{
		APIAddr:     ":8080",
		DataDir:     "data",
		QuoteTicker: "DAI",
		Tokens: []TokenSpec{
			{Ticker: "DAI", Handle: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")},
			{Ticker: "BAT", Handle: common.HexToAddress("0x0D8775F648430679A709E98d2b0Cb6250d2887EF")},
			{Ticker: "REP", Handle: common.HexToAddress("0x1985365e9f78359a9B6AD760e32412f4a445E862")},
			{Ticker: "ZRX", Handle: common.HexToAddress("0xE41d2489571d322189246DaFA5ebDe1F4699F498")},
		},
		KafkaTopic: "fills",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// the environment. Priority: env > .env > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("QUOTE_TICKER"); v != "" {
		cfg.QuoteTicker = v
	}
	if v := os.Getenv("TOKENS"); v != "" {
		if tokens, err := ParseTokens(v); err == nil {
			cfg.Tokens = tokens
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}

	return cfg
}

// ParseTokens parses "TICKER:0xhandle,TICKER:0xhandle,...".
func ParseTokens(s string) ([]TokenSpec, error) {
	var out []TokenSpec
	for _, part := range strings.Split(s, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 || fields[0] == "" {
			return nil, fmt.Errorf("bad token spec %q", part)
		}
		if !common.IsHexAddress(fields[1]) {
			return nil, fmt.Errorf("bad token handle %q", fields[1])
		}
		out = append(out, TokenSpec{Ticker: fields[0], Handle: common.HexToAddress(fields[1])})
	}
	return out, nil
}
