package payout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

func newService(t *testing.T, partyID, seed string) (*Service, ledger.Ledger) {
	t.Helper()
	l := ledger.NewInMemory()
	if err := ledger.Seed(l, partyID, money.MustFromString(seed)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewService(l, nil), l
}

func TestRequestDebitsImmediately(t *testing.T) {
	svc, l := newService(t, "party-1", "100.00")
	ctx := context.Background()

	entry, err := svc.Request(ctx, RequestInput{
		PartyID:     "party-1",
		Amount:      money.MustFromString("60.00"),
		Method:      MethodCrypto,
		Destination: "0xabc",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if entry.Status != ledger.StatusPending {
		t.Fatalf("expected PENDING, got %s", entry.Status)
	}
	if entry.Amount.String() != "-60.00" {
		t.Fatalf("withdrawal amount must be recorded negative, got %s", entry.Amount)
	}
	if entry.Metadata[ledger.MetaMethod] != MethodCrypto || entry.Metadata[ledger.MetaDestination] != "0xabc" {
		t.Fatalf("missing request metadata: %v", entry.Metadata)
	}

	bal, _ := l.Balance(ctx, "party-1")
	if bal.String() != "40.00" {
		t.Fatalf("expected balance 40.00 after request, got %s", bal)
	}
}

func TestRequestInsufficientFundsLeavesNoTrace(t *testing.T) {
	svc, l := newService(t, "party-1", "100.00")
	ctx := context.Background()

	_, err := svc.Request(ctx, RequestInput{
		PartyID: "party-1",
		Amount:  money.MustFromString("150.00"),
		Method:  MethodBankTransfer,
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	bal, _ := l.Balance(ctx, "party-1")
	if bal.String() != "100.00" {
		t.Fatalf("balance must be unchanged, got %s", bal)
	}
	rows, _ := svc.History(ctx, "party-1", 0, 0)
	if len(rows) != 0 {
		t.Fatalf("expected no withdrawal rows, got %d", len(rows))
	}
}

func TestRequestValidation(t *testing.T) {
	svc, _ := newService(t, "party-1", "100.00")
	ctx := context.Background()

	if _, err := svc.Request(ctx, RequestInput{PartyID: "party-1", Amount: money.Zero(), Method: MethodCrypto}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Request(ctx, RequestInput{PartyID: "party-1", Amount: money.MustFromString("10.00"), Method: "carrier_pigeon"}); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestApproveChangesStatusOnly(t *testing.T) {
	svc, l := newService(t, "party-1", "100.00")
	ctx := context.Background()

	entry, err := svc.Request(ctx, RequestInput{PartyID: "party-1", Amount: money.MustFromString("60.00"), Method: MethodCrypto})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := svc.Approve(ctx, entry.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != ledger.StatusPaid {
		t.Fatalf("expected PAID, got %s", approved.Status)
	}

	bal, _ := l.Balance(ctx, "party-1")
	if bal.String() != "40.00" {
		t.Fatalf("approve must not move the balance, got %s", bal)
	}

	// Terminal state protection.
	if _, err := svc.Approve(ctx, entry.ID); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if _, err := svc.Reject(ctx, entry.ID, "too late"); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed on reject, got %v", err)
	}
}

func TestRejectRefundsExactlyOnce(t *testing.T) {
	svc, l := newService(t, "party-1", "100.00")
	ctx := context.Background()

	entry, err := svc.Request(ctx, RequestInput{PartyID: "party-1", Amount: money.MustFromString("60.00"), Method: MethodBankTransfer, Destination: "IBAN123"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	rejected, err := svc.Reject(ctx, entry.ID, "bad destination")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != ledger.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.Metadata[ledger.MetaRejectionReason] != "bad destination" {
		t.Fatalf("missing rejection reason: %v", rejected.Metadata)
	}
	// The request metadata survives the merge.
	if rejected.Metadata[ledger.MetaDestination] != "IBAN123" {
		t.Fatalf("merge dropped destination: %v", rejected.Metadata)
	}

	bal, _ := l.Balance(ctx, "party-1")
	if bal.String() != "100.00" {
		t.Fatalf("expected full refund, got %s", bal)
	}

	if _, err := svc.Reject(ctx, entry.ID, "again"); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	bal, _ = l.Balance(ctx, "party-1")
	if bal.String() != "100.00" {
		t.Fatalf("second reject must not move the balance, got %s", bal)
	}
}

func TestApproveUnknownTransaction(t *testing.T) {
	svc, _ := newService(t, "party-1", "100.00")
	ctx := context.Background()

	if _, err := svc.Approve(ctx, "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Reject(ctx, "missing", "n/a"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApproveIgnoresNonWithdrawals(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, nil)
	ctx := context.Background()

	deposit, err := l.Credit(ctx, "party-1", money.MustFromString("10.00"), ledger.TypeDeposit, ledger.StatusCompleted, nil)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Approve(ctx, deposit.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-withdrawal, got %v", err)
	}
}

func TestConcurrentRequestsCannotExceedBalance(t *testing.T) {
	svc, l := newService(t, "party-1", "100.00")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Request(ctx, RequestInput{PartyID: "party-1", Amount: money.MustFromString("60.00"), Method: MethodCrypto})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ledger.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one request to win, got %d", succeeded)
	}
	bal, _ := l.Balance(ctx, "party-1")
	if bal.String() != "40.00" {
		t.Fatalf("expected one debit applied, got %s", bal)
	}
}

func TestEndToEndRejectScenario(t *testing.T) {
	svc, l := newService(t, "party-1", "100.00")
	ctx := context.Background()

	entry, err := svc.Request(ctx, RequestInput{PartyID: "party-1", Amount: money.MustFromString("60.00"), Method: MethodCrypto, Destination: "0xdead"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if bal, _ := l.Balance(ctx, "party-1"); bal.String() != "40.00" {
		t.Fatalf("expected 40.00 while pending, got %s", bal)
	}

	rejected, err := svc.Reject(ctx, entry.ID, "bad destination")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if bal, _ := l.Balance(ctx, "party-1"); bal.String() != "100.00" {
		t.Fatalf("expected 100.00 after reject, got %s", bal)
	}
	if rejected.Status != ledger.StatusRejected || rejected.Metadata[ledger.MetaRejectionReason] != "bad destination" {
		t.Fatalf("unexpected terminal record: %+v", rejected)
	}
}
