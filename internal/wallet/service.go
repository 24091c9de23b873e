package wallet

import (
	"context"
	"time"

	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

// Service exposes wallet operations backed by the ledger. All mutations flow
// through the ledger's locked composite operations; the service itself never
// touches a balance directly.
type Service struct {
	ledger    ledger.Ledger
	onDeposit func(ctx context.Context, partyID string)
}

// NewService builds a wallet service instance.
func NewService(l ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// OnDeposit registers a hook invoked after every successful deposit. Used to
// signal referral conversions; the hook must tolerate repeat calls for the
// same party.
func (s *Service) OnDeposit(hook func(ctx context.Context, partyID string)) {
	s.onDeposit = hook
}

// Balance is a display snapshot of a party's funds.
type Balance struct {
	PartyID  string
	WalletID string
	Amount   money.Money
	Currency string
	Frozen   bool
	AsOf     time.Time
}

// GetOrCreate returns the party's wallet, provisioning it lazily.
func (s *Service) GetOrCreate(ctx context.Context, partyID string) (ledger.Wallet, error) {
	return s.ledger.EnsureWallet(ctx, partyID)
}

// Balance returns the current snapshot balance. Never used to authorize a
// debit; the ledger re-reads under lock for that.
func (s *Service) Balance(ctx context.Context, partyID string) (Balance, error) {
	w, err := s.ledger.WalletByParty(ctx, partyID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		PartyID:  w.PartyID,
		WalletID: w.ID,
		Amount:   w.Balance,
		Currency: w.Currency,
		Frozen:   w.Frozen,
		AsOf:     time.Now().UTC(),
	}, nil
}

// Freeze blocks all mutating operations on the wallet.
func (s *Service) Freeze(ctx context.Context, partyID string) error {
	return s.ledger.SetFrozen(ctx, partyID, true)
}

// Unfreeze re-enables mutations.
func (s *Service) Unfreeze(ctx context.Context, partyID string) error {
	return s.ledger.SetFrozen(ctx, partyID, false)
}

// Deposit credits funds into the party's wallet as a completed transaction.
func (s *Service) Deposit(ctx context.Context, partyID string, amount money.Money, method string) (ledger.Transaction, error) {
	meta := ledger.Metadata{}
	if method != "" {
		meta[ledger.MetaMethod] = method
	}
	entry, err := s.ledger.Credit(ctx, partyID, amount, ledger.TypeDeposit, ledger.StatusCompleted, meta)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if s.onDeposit != nil {
		s.onDeposit(ctx, partyID)
	}
	return entry, nil
}

// RecordWager debits a wager reported by the gaming subsystem. Wagers are
// terminal at creation.
func (s *Service) RecordWager(ctx context.Context, partyID string, amount money.Money, description string) (ledger.Transaction, error) {
	meta := ledger.Metadata{}
	if description != "" {
		meta[ledger.MetaDescription] = description
	}
	return s.ledger.Debit(ctx, partyID, amount, ledger.TypeWager, ledger.StatusCompleted, meta)
}

// RecordWin credits a win reported by the gaming subsystem.
func (s *Service) RecordWin(ctx context.Context, partyID string, amount money.Money, description string) (ledger.Transaction, error) {
	meta := ledger.Metadata{}
	if description != "" {
		meta[ledger.MetaDescription] = description
	}
	return s.ledger.Credit(ctx, partyID, amount, ledger.TypeWin, ledger.StatusCompleted, meta)
}

// Statement lists the party's transactions, newest first.
func (s *Service) Statement(ctx context.Context, partyID string, typ ledger.TransactionType, status ledger.Status, limit, offset int) ([]ledger.Transaction, error) {
	return s.ledger.ListTransactions(ctx, ledger.Filter{
		PartyID: partyID,
		Type:    typ,
		Status:  status,
		Limit:   limit,
		Offset:  offset,
	})
}
