package registry

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	daiHandle = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	repHandle = common.HexToAddress("0x1985365e9f78359a9B6AD760e32412f4a445E862")
)

func TestRegisterAndResolve(t *testing.T) {
	reg := New("DAI")

	if err := reg.Register("REP", repHandle); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	tok, err := reg.Resolve("REP")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if tok.Handle != repHandle {
		t.Errorf("handle = %s, want %s", tok.Handle.Hex(), repHandle.Hex())
	}
}

func TestResolveUnknown(t *testing.T) {
	reg := New("DAI")

	_, err := reg.Resolve("NOPE")
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("err = %v, want ErrUnknownToken", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := New("DAI")

	if err := reg.Register("REP", repHandle); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := reg.Register("REP", repHandle); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegisterEmptyTicker(t *testing.T) {
	reg := New("DAI")

	if err := reg.Register("", repHandle); err == nil {
		t.Error("expected error for empty ticker")
	}
}

func TestIsQuote(t *testing.T) {
	reg := New("DAI")
	if err := reg.Register("DAI", daiHandle); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := reg.Register("REP", repHandle); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if !reg.IsQuote("DAI") {
		t.Error("DAI should be the quote currency")
	}
	if reg.IsQuote("REP") {
		t.Error("REP should not be the quote currency")
	}
	if reg.Quote() != "DAI" {
		t.Errorf("quote = %s, want DAI", reg.Quote())
	}
}

func TestListSorted(t *testing.T) {
	reg := New("DAI")
	for _, ticker := range []string{"ZRX", "BAT", "REP"} {
		if err := reg.Register(ticker, repHandle); err != nil {
			t.Fatalf("register %s failed: %v", ticker, err)
		}
	}

	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	want := []string{"BAT", "REP", "ZRX"}
	for i, tok := range list {
		if tok.Ticker != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, tok.Ticker, want[i])
		}
	}
}
