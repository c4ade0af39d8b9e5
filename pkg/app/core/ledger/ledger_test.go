package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestCreditAndBalanceOf(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Credit(alice, "DAI", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}

	// Unknown pairs read as zero.
	if got := l.BalanceOf(bob, "DAI"); got != 0 {
		t.Errorf("unknown balance = %d, want 0", got)
	}
	if got := l.BalanceOf(alice, "REP"); got != 0 {
		t.Errorf("unknown token balance = %d, want 0", got)
	}
}

func TestCreditInvalidAmount(t *testing.T) {
	l := newTestLedger(t)

	for _, amount := range []int64{0, -5} {
		if err := l.Credit(alice, "DAI", amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("credit %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestDebit(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "DAI", 100)

	if err := l.Debit(alice, "DAI", 40); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != 60 {
		t.Errorf("balance = %d, want 60", got)
	}
}

func TestDebitInsufficient(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "DAI", 100)

	err := l.Debit(alice, "DAI", 1000)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != 100 {
		t.Errorf("balance mutated on failed debit: %d, want 100", got)
	}
}

func TestTransfer(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "REP", 50)

	if err := l.Transfer(alice, bob, "REP", 20); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := l.BalanceOf(alice, "REP"); got != 30 {
		t.Errorf("alice = %d, want 30", got)
	}
	if got := l.BalanceOf(bob, "REP"); got != 20 {
		t.Errorf("bob = %d, want 20", got)
	}
}

func TestTransferToSelfIsNoOp(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "DAI", 100)

	if err := l.Transfer(alice, alice, "DAI", 40); err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}
	total, err := l.TotalSupply("DAI")
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if total != 100 {
		t.Errorf("total = %d, want 100", total)
	}

	// A self transfer is still bounded by the balance.
	if err := l.Transfer(alice, alice, "DAI", 101); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestTransferInsufficientMutatesNothing(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "REP", 10)
	l.Credit(bob, "REP", 5)

	err := l.Transfer(alice, bob, "REP", 11)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := l.BalanceOf(alice, "REP"); got != 10 {
		t.Errorf("alice = %d, want 10", got)
	}
	if got := l.BalanceOf(bob, "REP"); got != 5 {
		t.Errorf("bob = %d, want 5", got)
	}
}

func TestTransferConservesTotal(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "REP", 70)
	l.Credit(bob, "REP", 30)

	before, err := l.TotalSupply("REP")
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}

	l.Transfer(alice, bob, "REP", 25)
	l.Transfer(bob, alice, "REP", 40)

	after, err := l.TotalSupply("REP")
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if before != after {
		t.Errorf("total supply changed: %d -> %d", before, after)
	}
	if after != 100 {
		t.Errorf("total = %d, want 100", after)
	}
}

// faultyStore fails saves on demand so the write-through ordering can
// be observed.
type faultyStore struct {
	*Store
	failSave bool
}

func (s *faultyStore) SaveBalance(trader common.Address, ticker string, amount int64) error {
	if s.failSave {
		return errors.New("save failed")
	}
	return s.Store.SaveBalance(trader, ticker, amount)
}

func TestFailedStoreWriteLeavesBalanceUnchanged(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	faulty := &faultyStore{Store: store}
	l := &Ledger{balances: make(map[balanceKey]int64), store: faulty}
	t.Cleanup(func() { store.Close() })

	if err := l.Credit(alice, "DAI", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	faulty.failSave = true
	if err := l.Credit(alice, "DAI", 50); err == nil {
		t.Fatal("credit succeeded despite store failure")
	}
	if got := l.BalanceOf(alice, "DAI"); got != 100 {
		t.Errorf("balance after failed credit = %d, want 100", got)
	}
	if err := l.Debit(alice, "DAI", 30); err == nil {
		t.Fatal("debit succeeded despite store failure")
	}
	if got := l.BalanceOf(alice, "DAI"); got != 100 {
		t.Errorf("balance after failed debit = %d, want 100", got)
	}

	// Cache and store agree once writes work again.
	faulty.failSave = false
	stored, err := store.LoadBalance(alice, "DAI")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored != 100 {
		t.Errorf("stored balance = %d, want 100", stored)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l.Credit(alice, "DAI", 123)
	l.Credit(alice, "REP", 7)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	l2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	if got := l2.BalanceOf(alice, "DAI"); got != 123 {
		t.Errorf("DAI after reopen = %d, want 123", got)
	}
	if got := l2.BalanceOf(alice, "REP"); got != 7 {
		t.Errorf("REP after reopen = %d, want 7", got)
	}
}
