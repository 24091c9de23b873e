package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
	"github.com/nexusplay/nexusplay/internal/notification"
)

// ErrNegativeRate indicates a commission rate below zero.
var ErrNegativeRate = errors.New("commission rate must not be negative")

// Engine computes and records commission accruals. A commission posts
// immediately: the row and the wallet credit commit as one unit, so an agent
// never sees a commission without the matching balance (or vice versa).
//
// The engine does not deduplicate qualifying events on its own; callers that
// need at-most-once semantics supply a DedupKey (conventionally
// "<sourcePartyID>:<type>").
type Engine struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewEngine constructs a commission engine.
func NewEngine(l ledger.Ledger, notifier notification.Notifier) *Engine {
	return &Engine{ledger: l, notifier: notifier}
}

// AccrueInput describes a qualifying activity event.
type AccrueInput struct {
	AgentID       string
	SourcePartyID string
	Revenue       money.Money
	Rate          decimal.Decimal
	Type          ledger.CommissionType
	// FlatAmount overrides the revenue share computation for CPA deals.
	FlatAmount money.Money
	DedupKey   string
}

// DedupKeyFor builds the conventional at-most-once key for a qualifying
// event.
func DedupKeyFor(sourcePartyID string, typ ledger.CommissionType) string {
	return sourcePartyID + ":" + string(typ)
}

// Accrue computes amount = revenue x rate (or the flat CPA amount), persists
// the commission with a snapshot of the rate, and credits the agent's wallet.
func (e *Engine) Accrue(ctx context.Context, in AccrueInput) (ledger.Commission, error) {
	if in.Rate.IsNegative() {
		return ledger.Commission{}, ErrNegativeRate
	}

	var amount money.Money
	switch in.Type {
	case ledger.CommissionCPA:
		amount = in.FlatAmount
	default:
		amount = in.Revenue.MulRate(in.Rate)
	}
	if amount.IsNegative() {
		return ledger.Commission{}, ledger.ErrInvalidAmount
	}

	c, err := e.ledger.RecordCommission(ctx, ledger.CommissionInput{
		AgentID:       in.AgentID,
		SourcePartyID: in.SourcePartyID,
		Amount:        amount,
		Revenue:       in.Revenue,
		Rate:          in.Rate,
		Type:          in.Type,
		DedupKey:      in.DedupKey,
		Description:   fmt.Sprintf("%s commission", in.Type),
	})
	if err != nil {
		return ledger.Commission{}, err
	}

	if e.notifier != nil && amount.IsPositive() {
		_ = e.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCommissionEarned,
			Destination: in.AgentID,
			Body:        fmt.Sprintf("Commission of %s earned", amount),
		})
	}
	return c, nil
}

// TotalEarned sums PAID commission amounts for the agent.
func (e *Engine) TotalEarned(ctx context.Context, agentID string) (money.Money, error) {
	totals, err := e.ledger.CommissionTotals(ctx, agentID)
	if err != nil {
		return money.Zero(), err
	}
	return totals.Earned, nil
}

// TotalPending sums PENDING commission amounts. Always zero under the current
// immediate-posting rule; kept for the future settlement lifecycle.
func (e *Engine) TotalPending(ctx context.Context, agentID string) (money.Money, error) {
	totals, err := e.ledger.CommissionTotals(ctx, agentID)
	if err != nil {
		return money.Zero(), err
	}
	return totals.Pending, nil
}

// History lists commission rows for the agent, newest first.
func (e *Engine) History(ctx context.Context, agentID string, limit, offset int) ([]ledger.Commission, error) {
	return e.ledger.ListCommissions(ctx, agentID, limit, offset)
}
