package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexusplay/nexusplay/internal/money"
)

var (
	// ErrNotFound indicates the wallet or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds occurs when a debit exceeds the wallet's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletFrozen occurs when a mutation is attempted on a frozen wallet.
	ErrWalletFrozen = errors.New("wallet frozen")

	// ErrAlreadyProcessed indicates a transition attempted on a transaction
	// that already reached a terminal status.
	ErrAlreadyProcessed = errors.New("transaction already processed")

	// ErrInvalidTransition indicates the requested status is not a legal
	// successor of the current one.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidAmount indicates a non-positive amount was supplied where a
	// positive one is required.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateAccrual indicates the commission dedup key was already used,
	// so the qualifying event has been accrued before.
	ErrDuplicateAccrual = errors.New("duplicate commission accrual")
)

// TransactionType classifies a balance-affecting event.
type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeWager      TransactionType = "WAGER"
	TypeWin        TransactionType = "WIN"
	TypeCommission TransactionType = "COMMISSION"
)

// Status is the lifecycle state of a transaction. Only WITHDRAWAL
// transactions are created PENDING; every other type is born terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusPaid      Status = "PAID"
	StatusRejected  Status = "REJECTED"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPaid, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s. The only
// legal moves are PENDING to one of the terminal statuses.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// CommissionType selects how the commission amount was derived.
type CommissionType string

const (
	CommissionRevenueShare CommissionType = "REVENUE_SHARE"
	CommissionCPA          CommissionType = "CPA"
)

// CommissionStatus tracks commission settlement. Commissions currently post
// as PAID at creation; PENDING is reserved for a future clearing lifecycle.
type CommissionStatus string

const (
	CommissionPending CommissionStatus = "PENDING"
	CommissionPaid    CommissionStatus = "PAID"
)

// Soft metadata keys recorded on transactions. The metadata map is a soft
// schema: these keys are conventional, not enforced.
const (
	MetaMethod          = "method"
	MetaDestination     = "destination"
	MetaRejectionReason = "rejection_reason"
	MetaDescription     = "description"
	MetaBalanceBefore   = "balance_before"
	MetaBalanceAfter    = "balance_after"
)

// Metadata carries free-form transaction context.
type Metadata map[string]any

// Merge returns a copy of m with extra applied on top. Existing keys are only
// overwritten when extra provides a replacement; nothing is dropped.
func (m Metadata) Merge(extra Metadata) Metadata {
	out := make(Metadata, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Wallet is the single balance record for a party. Exactly one wallet exists
// per party; it is created lazily and never deleted.
type Wallet struct {
	ID        string
	PartyID   string
	Balance   money.Money
	Currency  string
	Frozen    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an append-mostly record of a balance-affecting event. Amount
// is signed: positive credits, negative debits. The wallet balance equals the
// sum of signed amounts over its non-REJECTED transactions; a rejection
// restores the balance and flips the status rather than appending a
// compensating row.
type Transaction struct {
	ID        string
	WalletID  string
	Amount    money.Money
	Type      TransactionType
	Status    Status
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Commission records earnings credited to an agent or affiliate from a
// referred party's qualifying activity. Rate is a snapshot taken at accrual
// time, never recomputed.
type Commission struct {
	ID            string
	AgentID       string
	SourcePartyID string // empty when the activity is anonymized
	Amount        money.Money
	Revenue       money.Money
	Rate          decimal.Decimal
	Type          CommissionType
	Status        CommissionStatus
	DedupKey      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CommissionInput captures a commission accrual to be recorded atomically
// with the wallet credit.
type CommissionInput struct {
	AgentID       string
	SourcePartyID string
	Amount        money.Money
	Revenue       money.Money
	Rate          decimal.Decimal
	Type          CommissionType
	DedupKey      string
	Description   string
}

// Filter narrows transaction listings. WalletID and PartyID are alternative
// scopes; when both are set WalletID wins.
type Filter struct {
	WalletID string
	PartyID  string
	Type     TransactionType
	Status   Status
	Limit    int
	Offset   int
}

// CommissionTotals aggregates commission rows for one agent.
type CommissionTotals struct {
	Earned  money.Money
	Pending money.Money
	Revenue money.Money
}

// SeriesPoint is a per-day commission rollup used by reporting charts.
type SeriesPoint struct {
	Date    time.Time
	Amount  money.Money
	Revenue money.Money
	Count   int
}

// Ledger is the financial storage core. It owns the wallets, transactions and
// commissions tables, and every operation that both mutates a balance and
// writes a row executes as one atomic unit: callers never observe a
// half-applied payout or accrual.
//
// The wallet row is the single serialization point; implementations serialize
// Credit/Debit/Reverse/RecordCommission per wallet. Cross-wallet operations
// carry no ordering guarantee relative to each other.
type Ledger interface {
	// EnsureWallet returns the party's wallet, creating it with balance zero
	// on first use. Safe under concurrent first-time creation.
	EnsureWallet(ctx context.Context, partyID string) (Wallet, error)

	// WalletByParty fetches the wallet without locking.
	WalletByParty(ctx context.Context, partyID string) (Wallet, error)

	// Balance is an unlocked snapshot read, suitable for display only. Debits
	// are authorized against the locked balance inside Debit, never this.
	Balance(ctx context.Context, partyID string) (money.Money, error)

	// SetFrozen toggles the wallet's frozen flag.
	SetFrozen(ctx context.Context, partyID string, frozen bool) error

	// Credit locks the wallet, adds amount (must be positive) and appends a
	// transaction carrying balance_before/balance_after metadata.
	Credit(ctx context.Context, partyID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error)

	// Debit locks the wallet, verifies balance >= amount and subtracts it,
	// appending a transaction with negative amount. Fails with
	// ErrInsufficientFunds or ErrWalletFrozen leaving no side effect.
	Debit(ctx context.Context, partyID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error)

	// Transaction fetches a single transaction.
	Transaction(ctx context.Context, id string) (Transaction, error)

	// Transition moves a PENDING transaction to a terminal status, merging
	// extra metadata. The balance is untouched.
	Transition(ctx context.Context, id string, next Status, extra Metadata) (Transaction, error)

	// Reverse moves a PENDING transaction to a terminal status and credits
	// the wallet back by abs(amount), both in one atomic unit. Used to
	// reject withdrawals.
	Reverse(ctx context.Context, id string, next Status, extra Metadata) (Transaction, error)

	// ListTransactions returns transactions ordered by creation time
	// descending.
	ListTransactions(ctx context.Context, f Filter) ([]Transaction, error)

	// CountTransactions counts the transactions matching the filter,
	// ignoring Limit and Offset.
	CountTransactions(ctx context.Context, f Filter) (int, error)

	// RecordCommission inserts the commission row and credits the agent's
	// wallet (appending a COMMISSION transaction) as one atomic unit. A
	// non-empty DedupKey enforces at-most-once accrual per qualifying event.
	RecordCommission(ctx context.Context, in CommissionInput) (Commission, error)

	// CommissionTotals aggregates earned/pending amounts and revenue basis.
	CommissionTotals(ctx context.Context, agentID string) (CommissionTotals, error)

	// CommissionSeries returns per-day rollups since the given time.
	CommissionSeries(ctx context.Context, agentID string, since time.Time) ([]SeriesPoint, error)

	// ListCommissions returns commission rows newest first.
	ListCommissions(ctx context.Context, agentID string, limit, offset int) ([]Commission, error)

	// CountCommissions counts rows of one type for an agent.
	CountCommissions(ctx context.Context, agentID string, typ CommissionType) (int, error)
}
