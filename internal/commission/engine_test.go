package commission

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

func TestAccrueRevenueShare(t *testing.T) {
	l := ledger.NewInMemory()
	eng := NewEngine(l, nil)
	ctx := context.Background()

	c, err := eng.Accrue(ctx, AccrueInput{
		AgentID:       "agent-1",
		SourcePartyID: "user-7",
		Revenue:       money.MustFromString("100.00"),
		Rate:          decimal.RequireFromString("0.25"),
		Type:          ledger.CommissionRevenueShare,
	})
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if c.Amount.String() != "25.00" {
		t.Fatalf("expected 25.00, got %s", c.Amount)
	}
	if c.Status != ledger.CommissionPaid {
		t.Fatalf("expected immediate PAID posting, got %s", c.Status)
	}
	// The rate is snapshotted on the row.
	if !c.Rate.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("rate snapshot lost: %s", c.Rate)
	}

	bal, _ := l.Balance(ctx, "agent-1")
	if bal.String() != "25.00" {
		t.Fatalf("wallet credit missing, balance %s", bal)
	}
}

func TestAccrueRoundsHalfUp(t *testing.T) {
	eng := NewEngine(ledger.NewInMemory(), nil)
	ctx := context.Background()

	// 33.33 x 0.125 = 4.16625 -> 4.17
	c, err := eng.Accrue(ctx, AccrueInput{
		AgentID: "agent-1",
		Revenue: money.MustFromString("33.33"),
		Rate:    decimal.RequireFromString("0.125"),
		Type:    ledger.CommissionRevenueShare,
	})
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if c.Amount.String() != "4.17" {
		t.Fatalf("expected 4.17, got %s", c.Amount)
	}
}

func TestAccrueFlatCPA(t *testing.T) {
	l := ledger.NewInMemory()
	eng := NewEngine(l, nil)
	ctx := context.Background()

	c, err := eng.Accrue(ctx, AccrueInput{
		AgentID:       "aff-1",
		SourcePartyID: "user-2",
		Type:          ledger.CommissionCPA,
		FlatAmount:    money.MustFromString("50.00"),
		DedupKey:      DedupKeyFor("user-2", ledger.CommissionCPA),
	})
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if c.Amount.String() != "50.00" {
		t.Fatalf("expected flat 50.00, got %s", c.Amount)
	}

	// Same qualifying event again is refused and credits nothing.
	_, err = eng.Accrue(ctx, AccrueInput{
		AgentID:       "aff-1",
		SourcePartyID: "user-2",
		Type:          ledger.CommissionCPA,
		FlatAmount:    money.MustFromString("50.00"),
		DedupKey:      DedupKeyFor("user-2", ledger.CommissionCPA),
	})
	if !errors.Is(err, ledger.ErrDuplicateAccrual) {
		t.Fatalf("expected ErrDuplicateAccrual, got %v", err)
	}
	bal, _ := l.Balance(ctx, "aff-1")
	if bal.String() != "50.00" {
		t.Fatalf("duplicate credited the wallet: %s", bal)
	}
}

func TestAccrueZeroRevenue(t *testing.T) {
	l := ledger.NewInMemory()
	eng := NewEngine(l, nil)
	ctx := context.Background()

	c, err := eng.Accrue(ctx, AccrueInput{
		AgentID: "agent-1",
		Revenue: money.Zero(),
		Rate:    decimal.RequireFromString("0.30"),
		Type:    ledger.CommissionRevenueShare,
	})
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if !c.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", c.Amount)
	}
	// Row exists, no ledger entry posted.
	rows, _ := eng.History(ctx, "agent-1", 0, 0)
	if len(rows) != 1 {
		t.Fatalf("expected one commission row, got %d", len(rows))
	}
	entries, _ := l.ListTransactions(ctx, ledger.Filter{PartyID: "agent-1"})
	if len(entries) != 0 {
		t.Fatalf("zero accrual must not post a transaction, got %d", len(entries))
	}
}

func TestAccrueRejectsNegativeRate(t *testing.T) {
	eng := NewEngine(ledger.NewInMemory(), nil)
	ctx := context.Background()

	if _, err := eng.Accrue(ctx, AccrueInput{
		AgentID: "agent-1",
		Revenue: money.MustFromString("10.00"),
		Rate:    decimal.RequireFromString("-0.10"),
		Type:    ledger.CommissionRevenueShare,
	}); !errors.Is(err, ErrNegativeRate) {
		t.Fatalf("expected ErrNegativeRate, got %v", err)
	}
}

func TestCommissionAdditivity(t *testing.T) {
	l := ledger.NewInMemory()
	eng := NewEngine(l, nil)
	ctx := context.Background()

	for _, amount := range []string{"10.00", "15.50", "4.25"} {
		if _, err := eng.Accrue(ctx, AccrueInput{
			AgentID:    "agent-1",
			Type:       ledger.CommissionCPA,
			FlatAmount: money.MustFromString(amount),
		}); err != nil {
			t.Fatalf("accrue %s: %v", amount, err)
		}
	}

	bal, _ := l.Balance(ctx, "agent-1")
	if bal.String() != "29.75" {
		t.Fatalf("expected 29.75, got %s", bal)
	}
	earned, err := eng.TotalEarned(ctx, "agent-1")
	if err != nil {
		t.Fatalf("total earned: %v", err)
	}
	if earned.String() != "29.75" {
		t.Fatalf("expected earned 29.75, got %s", earned)
	}
	pending, _ := eng.TotalPending(ctx, "agent-1")
	if !pending.IsZero() {
		t.Fatalf("expected zero pending, got %s", pending)
	}
	rows, _ := eng.History(ctx, "agent-1", 0, 0)
	if len(rows) != 3 {
		t.Fatalf("expected three commission rows, got %d", len(rows))
	}
}
