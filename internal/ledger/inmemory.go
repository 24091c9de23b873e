package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexusplay/nexusplay/internal/money"
)

type inMemoryLedger struct {
	mu          sync.Mutex
	wallets     map[string]*Wallet // keyed by party id
	byID        map[string]*Transaction
	order       []string // transaction ids in creation order
	commissions []Commission
	dedup       map[string]bool
	seq         int64
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests. A single mutex serializes every mutation, which satisfies the same
// per-wallet ordering guarantee the Postgres implementation gets from row
// locks.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets: make(map[string]*Wallet),
		byID:    make(map[string]*Transaction),
		dedup:   make(map[string]bool),
	}
}

func (l *inMemoryLedger) now() time.Time {
	// Strictly increasing timestamps keep list ordering deterministic even
	// when the clock does not advance between appends.
	l.seq++
	return time.Now().UTC().Add(time.Duration(l.seq) * time.Microsecond)
}

func (l *inMemoryLedger) ensure(partyID string) *Wallet {
	w, ok := l.wallets[partyID]
	if !ok {
		now := time.Now().UTC()
		w = &Wallet{
			ID:        uuid.NewString(),
			PartyID:   partyID,
			Balance:   money.Zero(),
			Currency:  defaultCurrency,
			CreatedAt: now,
			UpdatedAt: now,
		}
		l.wallets[partyID] = w
	}
	return w
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, partyID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.ensure(partyID), nil
}

func (l *inMemoryLedger) WalletByParty(_ context.Context, partyID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[partyID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return *w, nil
}

func (l *inMemoryLedger) Balance(ctx context.Context, partyID string) (money.Money, error) {
	w, err := l.WalletByParty(ctx, partyID)
	if err != nil {
		return money.Zero(), err
	}
	return w.Balance, nil
}

func (l *inMemoryLedger) SetFrozen(_ context.Context, partyID string, frozen bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[partyID]
	if !ok {
		return ErrNotFound
	}
	w.Frozen = frozen
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *inMemoryLedger) Credit(_ context.Context, partyID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.post(partyID, amount, typ, status, meta)
}

func (l *inMemoryLedger) Debit(_ context.Context, partyID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.post(partyID, amount.Neg(), typ, status, meta)
}

// post applies a signed delta and appends the paired transaction. Callers
// hold the mutex.
func (l *inMemoryLedger) post(partyID string, delta money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	w := l.ensure(partyID)
	if w.Frozen {
		return Transaction{}, ErrWalletFrozen
	}
	newBalance := w.Balance.Add(delta)
	if newBalance.IsNegative() {
		return Transaction{}, ErrInsufficientFunds
	}

	record := Metadata{
		MetaBalanceBefore: w.Balance.String(),
		MetaBalanceAfter:  newBalance.String(),
	}.Merge(meta)

	w.Balance = newBalance
	w.UpdatedAt = time.Now().UTC()

	now := l.now()
	entry := &Transaction{
		ID:        uuid.NewString(),
		WalletID:  w.ID,
		Amount:    delta,
		Type:      typ,
		Status:    status,
		Metadata:  record,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.byID[entry.ID] = entry
	l.order = append(l.order, entry.ID)
	return *entry, nil
}

func (l *inMemoryLedger) Transaction(_ context.Context, id string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.byID[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return *entry, nil
}

func (l *inMemoryLedger) Transition(_ context.Context, id string, next Status, extra Metadata) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finalize(id, next, extra, false)
}

func (l *inMemoryLedger) Reverse(_ context.Context, id string, next Status, extra Metadata) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finalize(id, next, extra, true)
}

func (l *inMemoryLedger) finalize(id string, next Status, extra Metadata, refund bool) (Transaction, error) {
	entry, ok := l.byID[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if entry.Status.Terminal() {
		return Transaction{}, ErrAlreadyProcessed
	}
	if !entry.Status.CanTransitionTo(next) {
		return Transaction{}, ErrInvalidTransition
	}

	if refund {
		for _, w := range l.wallets {
			if w.ID == entry.WalletID {
				w.Balance = w.Balance.Add(entry.Amount.Abs())
				w.UpdatedAt = time.Now().UTC()
				break
			}
		}
	}

	entry.Status = next
	entry.Metadata = entry.Metadata.Merge(extra)
	entry.UpdatedAt = time.Now().UTC()
	return *entry, nil
}

func (l *inMemoryLedger) ListTransactions(_ context.Context, f Filter) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	walletID := f.WalletID
	if walletID == "" && f.PartyID != "" {
		w, ok := l.wallets[f.PartyID]
		if !ok {
			return nil, nil
		}
		walletID = w.ID
	}

	var out []Transaction
	// Newest first.
	for i := len(l.order) - 1; i >= 0; i-- {
		entry := l.byID[l.order[i]]
		if walletID != "" && entry.WalletID != walletID {
			continue
		}
		if f.Type != "" && entry.Type != f.Type {
			continue
		}
		if f.Status != "" && entry.Status != f.Status {
			continue
		}
		out = append(out, *entry)
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (l *inMemoryLedger) CountTransactions(_ context.Context, f Filter) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	walletID := f.WalletID
	if walletID == "" && f.PartyID != "" {
		w, ok := l.wallets[f.PartyID]
		if !ok {
			return 0, nil
		}
		walletID = w.ID
	}

	count := 0
	for _, id := range l.order {
		entry := l.byID[id]
		if walletID != "" && entry.WalletID != walletID {
			continue
		}
		if f.Type != "" && entry.Type != f.Type {
			continue
		}
		if f.Status != "" && entry.Status != f.Status {
			continue
		}
		count++
	}
	return count, nil
}

func (l *inMemoryLedger) RecordCommission(_ context.Context, in CommissionInput) (Commission, error) {
	if in.Amount.IsNegative() {
		return Commission{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if in.DedupKey != "" {
		if l.dedup[in.DedupKey] {
			return Commission{}, ErrDuplicateAccrual
		}
	}

	if in.Amount.IsPositive() {
		meta := Metadata{}
		if in.Description != "" {
			meta[MetaDescription] = in.Description
		}
		if _, err := l.post(in.AgentID, in.Amount, TypeCommission, StatusCompleted, meta); err != nil {
			return Commission{}, err
		}
	}

	if in.DedupKey != "" {
		l.dedup[in.DedupKey] = true
	}

	now := time.Now().UTC()
	c := Commission{
		ID:            uuid.NewString(),
		AgentID:       in.AgentID,
		SourcePartyID: in.SourcePartyID,
		Amount:        in.Amount,
		Revenue:       in.Revenue,
		Rate:          in.Rate,
		Type:          in.Type,
		Status:        CommissionPaid,
		DedupKey:      in.DedupKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	l.commissions = append(l.commissions, c)
	return c, nil
}

func (l *inMemoryLedger) CommissionTotals(_ context.Context, agentID string) (CommissionTotals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := CommissionTotals{Earned: money.Zero(), Pending: money.Zero(), Revenue: money.Zero()}
	for _, c := range l.commissions {
		if c.AgentID != agentID {
			continue
		}
		switch c.Status {
		case CommissionPaid:
			totals.Earned = totals.Earned.Add(c.Amount)
		case CommissionPending:
			totals.Pending = totals.Pending.Add(c.Amount)
		}
		totals.Revenue = totals.Revenue.Add(c.Revenue)
	}
	return totals, nil
}

func (l *inMemoryLedger) CommissionSeries(_ context.Context, agentID string, since time.Time) ([]SeriesPoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byDay := make(map[time.Time]*SeriesPoint)
	var days []time.Time
	for _, c := range l.commissions {
		if c.AgentID != agentID || c.CreatedAt.Before(since) {
			continue
		}
		day := c.CreatedAt.Truncate(24 * time.Hour)
		p, ok := byDay[day]
		if !ok {
			p = &SeriesPoint{Date: day, Amount: money.Zero(), Revenue: money.Zero()}
			byDay[day] = p
			days = append(days, day)
		}
		p.Amount = p.Amount.Add(c.Amount)
		p.Revenue = p.Revenue.Add(c.Revenue)
		p.Count++
	}

	out := make([]SeriesPoint, 0, len(days))
	for _, day := range days {
		out = append(out, *byDay[day])
	}
	return out, nil
}

func (l *inMemoryLedger) ListCommissions(_ context.Context, agentID string, limit, offset int) ([]Commission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Commission
	for i := len(l.commissions) - 1; i >= 0; i-- {
		if l.commissions[i].AgentID == agentID {
			out = append(out, l.commissions[i])
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *inMemoryLedger) CountCommissions(_ context.Context, agentID string, typ CommissionType) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, c := range l.commissions {
		if c.AgentID == agentID && c.Type == typ {
			count++
		}
	}
	return count, nil
}
