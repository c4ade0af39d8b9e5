package params

import "testing"

func TestParseTokens(t *testing.T) {
	tokens, err := ParseTokens("DAI:0x6B175474E89094C44Da98b954EedeAC495271d0F,REP:0x1985365e9f78359a9B6AD760e32412f4a445E862")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("len = %d, want 2", len(tokens))
	}
	if tokens[0].Ticker != "DAI" || tokens[1].Ticker != "REP" {
		t.Errorf("tickers = %s, %s", tokens[0].Ticker, tokens[1].Ticker)
	}
}

func TestParseTokensBadSpecs(t *testing.T) {
	for _, s := range []string{
		"DAI",
		":0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"DAI:nothex",
	} {
		if _, err := ParseTokens(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.QuoteTicker != "DAI" {
		t.Errorf("quote = %s, want DAI", cfg.QuoteTicker)
	}

	found := false
	for _, tok := range cfg.Tokens {
		if tok.Ticker == cfg.QuoteTicker {
			found = true
		}
	}
	if !found {
		t.Error("quote currency missing from default token list")
	}
}
