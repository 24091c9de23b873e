package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

func TestGetOrCreateThenBalance(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	w, err := svc.GetOrCreate(ctx, "party-1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("fresh wallet must be zero, got %s", w.Balance)
	}

	bal, err := svc.Balance(ctx, "party-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.WalletID != w.ID || !bal.Amount.IsZero() {
		t.Fatalf("unexpected snapshot: %+v", bal)
	}
}

func TestDepositWagerWinFlow(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, "party-1", money.MustFromString("100.00"), "card"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.RecordWager(ctx, "party-1", money.MustFromString("40.00"), "roulette"); err != nil {
		t.Fatalf("wager: %v", err)
	}
	if _, err := svc.RecordWin(ctx, "party-1", money.MustFromString("15.00"), "roulette"); err != nil {
		t.Fatalf("win: %v", err)
	}

	bal, err := svc.Balance(ctx, "party-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount.String() != "75.00" {
		t.Fatalf("expected 75.00, got %s", bal.Amount)
	}

	statement, err := svc.Statement(ctx, "party-1", "", "", 0, 0)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(statement) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(statement))
	}
	for _, e := range statement {
		if !e.Status.Terminal() {
			t.Fatalf("activity entries must be terminal, got %s", e.Status)
		}
	}
}

func TestWagerCannotOverdraw(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, "party-1", money.MustFromString("10.00"), "card"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.RecordWager(ctx, "party-1", money.MustFromString("10.01"), ""); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestDepositHookFiresOnSuccessOnly(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	var seen []string
	svc.OnDeposit(func(_ context.Context, partyID string) {
		seen = append(seen, partyID)
	})

	if _, err := svc.Deposit(ctx, "party-1", money.MustFromString("10.00"), "card"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Deposit(ctx, "party-1", money.Zero(), "card"); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if len(seen) != 1 || seen[0] != "party-1" {
		t.Fatalf("hook must fire once for the successful deposit, got %v", seen)
	}
}

func TestFreezeBlocksDeposits(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "party-1"); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := svc.Freeze(ctx, "party-1"); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if _, err := svc.Deposit(ctx, "party-1", money.MustFromString("5.00"), "card"); !errors.Is(err, ledger.ErrWalletFrozen) {
		t.Fatalf("expected ErrWalletFrozen, got %v", err)
	}
	if err := svc.Unfreeze(ctx, "party-1"); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if _, err := svc.Deposit(ctx, "party-1", money.MustFromString("5.00"), "card"); err != nil {
		t.Fatalf("deposit after unfreeze: %v", err)
	}
}
