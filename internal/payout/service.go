package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
	"github.com/nexusplay/nexusplay/internal/notification"
)

// ErrUnsupportedMethod indicates the requested payout method is not offered.
var ErrUnsupportedMethod = errors.New("unsupported payout method")

// Payout methods accepted at request time.
const (
	MethodBankTransfer = "bank_transfer"
	MethodCrypto       = "crypto"
	MethodMobileMoney  = "mobile_money"
)

var supportedMethods = map[string]bool{
	MethodBankTransfer: true,
	MethodCrypto:       true,
	MethodMobileMoney:  true,
}

// Service governs the withdrawal state machine. A payout is a WITHDRAWAL
// transaction: the wallet is debited at request time, so the balance check is
// authoritative; approval only finalizes status and rejection refunds.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a payout service.
func NewService(l ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: l, notifier: notifier}
}

// RequestInput captures a party's withdrawal request.
type RequestInput struct {
	PartyID     string
	Amount      money.Money
	Method      string
	Destination string
}

// Request reserves the amount immediately: the debit and the PENDING
// withdrawal row commit together, or not at all. A party therefore cannot
// queue two payouts that jointly exceed the balance.
func (s *Service) Request(ctx context.Context, in RequestInput) (ledger.Transaction, error) {
	if !in.Amount.IsPositive() {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	if !supportedMethods[in.Method] {
		return ledger.Transaction{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, in.Method)
	}

	meta := ledger.Metadata{
		ledger.MetaMethod:      in.Method,
		ledger.MetaDestination: in.Destination,
	}
	entry, err := s.ledger.Debit(ctx, in.PartyID, in.Amount, ledger.TypeWithdrawal, ledger.StatusPending, meta)
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.notify(ctx, notification.KindPayoutRequested, in.PartyID,
		fmt.Sprintf("Payout of %s requested via %s", in.Amount, in.Method))
	return entry, nil
}

// Approve finalizes a PENDING withdrawal as PAID. The wallet is untouched:
// the debit already happened at request time.
func (s *Service) Approve(ctx context.Context, transactionID string) (ledger.Transaction, error) {
	if _, err := s.withdrawal(ctx, transactionID); err != nil {
		return ledger.Transaction{}, err
	}
	entry, err := s.ledger.Transition(ctx, transactionID, ledger.StatusPaid, nil)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.notify(ctx, notification.KindPayoutApproved, entry.WalletID,
		fmt.Sprintf("Payout of %s approved", entry.Amount.Abs()))
	return entry, nil
}

// Reject refunds abs(amount) and marks the withdrawal REJECTED with the
// recorded reason, as one atomic unit.
func (s *Service) Reject(ctx context.Context, transactionID, reason string) (ledger.Transaction, error) {
	if _, err := s.withdrawal(ctx, transactionID); err != nil {
		return ledger.Transaction{}, err
	}
	entry, err := s.ledger.Reverse(ctx, transactionID, ledger.StatusRejected, ledger.Metadata{
		ledger.MetaRejectionReason: reason,
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.notify(ctx, notification.KindPayoutRejected, entry.WalletID,
		fmt.Sprintf("Payout of %s rejected: %s", entry.Amount.Abs(), reason))
	return entry, nil
}

// History lists the party's withdrawal transactions, newest first.
func (s *Service) History(ctx context.Context, partyID string, limit, offset int) ([]ledger.Transaction, error) {
	return s.ledger.ListTransactions(ctx, ledger.Filter{
		PartyID: partyID,
		Type:    ledger.TypeWithdrawal,
		Limit:   limit,
		Offset:  offset,
	})
}

// withdrawal fetches the transaction and confirms it is a withdrawal. The
// status itself is re-checked under lock by Transition/Reverse.
func (s *Service) withdrawal(ctx context.Context, transactionID string) (ledger.Transaction, error) {
	entry, err := s.ledger.Transaction(ctx, transactionID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if entry.Type != ledger.TypeWithdrawal {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	return entry, nil
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body})
}
