package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nexusplay/nexusplay/internal/money"
)

const uniqueViolation = "23505"

const defaultCurrency = "USD"

// PostgresLedger persists the financial core in PostgreSQL. Wallet rows are
// locked FOR UPDATE inside a transaction for every mutation, so all balance
// changes on one wallet are serialized by the database.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed ledger.
func NewPostgres(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const walletColumns = `id, party_id, balance::text, currency, frozen, created_at, updated_at`

const transactionColumns = `id, wallet_id, amount::text, type, status, metadata, created_at, updated_at`

const commissionColumns = `id, agent_id, source_party_id, amount::text, revenue::text, rate::text, type, status, COALESCE(dedup_key, ''), created_at, updated_at`

// EnsureWallet creates the party's wallet on first use. A concurrent
// first-time race resolves via the unique party_id constraint.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, partyID string) (Wallet, error) {
	party, err := uuid.Parse(partyID)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse party id: %w", err)
	}

	_, err = l.db.Exec(ctx, `INSERT INTO wallets (id, party_id, balance, currency, frozen, created_at, updated_at)
        VALUES ($1, $2, 0, $3, false, now(), now())
        ON CONFLICT (party_id) DO NOTHING`, uuid.New(), party, defaultCurrency)
	if err != nil {
		return Wallet{}, fmt.Errorf("ensure wallet: %w", err)
	}

	return l.WalletByParty(ctx, partyID)
}

// WalletByParty fetches the wallet without locking.
func (l *PostgresLedger) WalletByParty(ctx context.Context, partyID string) (Wallet, error) {
	party, err := uuid.Parse(partyID)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse party id: %w", err)
	}
	row := l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE party_id = $1`, party)
	return scanWallet(row)
}

// Balance returns a snapshot balance. Display only; never authorizes debits.
func (l *PostgresLedger) Balance(ctx context.Context, partyID string) (money.Money, error) {
	w, err := l.WalletByParty(ctx, partyID)
	if err != nil {
		return money.Zero(), err
	}
	return w.Balance, nil
}

// SetFrozen toggles the frozen flag.
func (l *PostgresLedger) SetFrozen(ctx context.Context, partyID string, frozen bool) error {
	party, err := uuid.Parse(partyID)
	if err != nil {
		return fmt.Errorf("parse party id: %w", err)
	}
	tag, err := l.db.Exec(ctx, `UPDATE wallets SET frozen = $2, updated_at = now() WHERE party_id = $1`, party, frozen)
	if err != nil {
		return fmt.Errorf("set frozen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Credit adds a positive amount to the wallet and appends the transaction.
func (l *PostgresLedger) Credit(ctx context.Context, partyID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return l.post(ctx, partyID, amount, typ, status, meta)
}

// Debit subtracts a positive amount, failing without side effects when the
// locked balance cannot cover it.
func (l *PostgresLedger) Debit(ctx context.Context, partyID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return l.post(ctx, partyID, amount.Neg(), typ, status, meta)
}

// post applies a signed delta and the paired append inside one transaction.
func (l *PostgresLedger) post(ctx context.Context, partyID string, delta money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	party, err := uuid.Parse(partyID)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse party id: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := ensureWalletTx(ctx, tx, party); err != nil {
		return Transaction{}, err
	}
	w, err := lockWallet(ctx, tx, party)
	if err != nil {
		return Transaction{}, err
	}
	if w.Frozen {
		return Transaction{}, ErrWalletFrozen
	}

	newBalance := w.Balance.Add(delta)
	if newBalance.IsNegative() {
		return Transaction{}, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2::numeric, updated_at = now() WHERE id = $1`, w.ID, newBalance.String()); err != nil {
		return Transaction{}, fmt.Errorf("update balance: %w", err)
	}

	record := Metadata{
		MetaBalanceBefore: w.Balance.String(),
		MetaBalanceAfter:  newBalance.String(),
	}.Merge(meta)

	entry, err := insertTransaction(ctx, tx, w.ID, delta, typ, status, record)
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return entry, nil
}

// Transaction fetches one transaction by id.
func (l *PostgresLedger) Transaction(ctx context.Context, id string) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, txID)
	return scanTransaction(row)
}

// Transition finalizes a PENDING transaction without touching the balance.
func (l *PostgresLedger) Transition(ctx context.Context, id string, next Status, extra Metadata) (Transaction, error) {
	return l.finalize(ctx, id, next, extra, false)
}

// Reverse finalizes a PENDING transaction and credits abs(amount) back to the
// wallet in the same database transaction.
func (l *PostgresLedger) Reverse(ctx context.Context, id string, next Status, extra Metadata) (Transaction, error) {
	return l.finalize(ctx, id, next, extra, true)
}

func (l *PostgresLedger) finalize(ctx context.Context, id string, next Status, extra Metadata, refund bool) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock the transaction row first, then the wallet row. Every other
	// operation locks the wallet only, so this ordering cannot deadlock.
	row := tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, txID)
	entry, err := scanTransaction(row)
	if err != nil {
		return Transaction{}, err
	}

	if entry.Status.Terminal() {
		return Transaction{}, ErrAlreadyProcessed
	}
	if !entry.Status.CanTransitionTo(next) {
		return Transaction{}, ErrInvalidTransition
	}

	if refund {
		var balance string
		if err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE id = $1 FOR UPDATE`, entry.WalletID).Scan(&balance); err != nil {
			return Transaction{}, fmt.Errorf("lock wallet: %w", err)
		}
		current, err := money.FromString(balance)
		if err != nil {
			return Transaction{}, err
		}
		restored := current.Add(entry.Amount.Abs())
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2::numeric, updated_at = now() WHERE id = $1`, entry.WalletID, restored.String()); err != nil {
			return Transaction{}, fmt.Errorf("refund balance: %w", err)
		}
	}

	merged := entry.Metadata.Merge(extra)
	payload, err := json.Marshal(merged)
	if err != nil {
		return Transaction{}, fmt.Errorf("encode metadata: %w", err)
	}

	var updatedAt time.Time
	if err := tx.QueryRow(ctx, `UPDATE transactions SET status = $2, metadata = $3, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		txID, string(next), payload).Scan(&updatedAt); err != nil {
		return Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}

	entry.Status = next
	entry.Metadata = merged
	entry.UpdatedAt = updatedAt
	return entry, nil
}

// ListTransactions returns transactions newest first, narrowed by the filter.
func (l *PostgresLedger) ListTransactions(ctx context.Context, f Filter) ([]Transaction, error) {
	query := `SELECT t.id, t.wallet_id, t.amount::text, t.type, t.status, t.metadata, t.created_at, t.updated_at FROM transactions t`
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.WalletID != "":
		id, err := uuid.Parse(f.WalletID)
		if err != nil {
			return nil, ErrNotFound
		}
		conds = append(conds, "t.wallet_id = "+arg(id))
	case f.PartyID != "":
		party, err := uuid.Parse(f.PartyID)
		if err != nil {
			return nil, ErrNotFound
		}
		query += ` JOIN wallets w ON w.id = t.wallet_id`
		conds = append(conds, "w.party_id = "+arg(party))
	}
	if f.Type != "" {
		conds = append(conds, "t.type = "+arg(string(f.Type)))
	}
	if f.Status != "" {
		conds = append(conds, "t.status = "+arg(string(f.Status)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// CountTransactions counts the transactions matching the filter.
func (l *PostgresLedger) CountTransactions(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM transactions t`
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.WalletID != "":
		id, err := uuid.Parse(f.WalletID)
		if err != nil {
			return 0, ErrNotFound
		}
		conds = append(conds, "t.wallet_id = "+arg(id))
	case f.PartyID != "":
		party, err := uuid.Parse(f.PartyID)
		if err != nil {
			return 0, ErrNotFound
		}
		query += ` JOIN wallets w ON w.id = t.wallet_id`
		conds = append(conds, "w.party_id = "+arg(party))
	}
	if f.Type != "" {
		conds = append(conds, "t.type = "+arg(string(f.Type)))
	}
	if f.Status != "" {
		conds = append(conds, "t.status = "+arg(string(f.Status)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := l.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// RecordCommission inserts the commission row, credits the agent wallet and
// appends the COMMISSION transaction as one unit.
func (l *PostgresLedger) RecordCommission(ctx context.Context, in CommissionInput) (Commission, error) {
	if in.Amount.IsNegative() {
		return Commission{}, ErrInvalidAmount
	}
	agent, err := uuid.Parse(in.AgentID)
	if err != nil {
		return Commission{}, fmt.Errorf("parse agent id: %w", err)
	}
	var source any
	if in.SourcePartyID != "" {
		src, err := uuid.Parse(in.SourcePartyID)
		if err != nil {
			return Commission{}, fmt.Errorf("parse source party id: %w", err)
		}
		source = src
	}
	var dedup any
	if in.DedupKey != "" {
		dedup = in.DedupKey
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Commission{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	id := uuid.New()
	var createdAt time.Time
	err = tx.QueryRow(ctx, `INSERT INTO commissions (id, agent_id, source_party_id, amount, revenue, rate, type, status, dedup_key, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, now(), now())
        RETURNING created_at`,
		id, agent, source, in.Amount.String(), in.Revenue.String(), in.Rate.String(), string(in.Type), string(CommissionPaid), dedup).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Commission{}, ErrDuplicateAccrual
		}
		return Commission{}, fmt.Errorf("insert commission: %w", err)
	}

	// Zero-amount accruals still record the row, but post no ledger entry.
	if in.Amount.IsPositive() {
		if err := ensureWalletTx(ctx, tx, agent); err != nil {
			return Commission{}, err
		}
		w, err := lockWallet(ctx, tx, agent)
		if err != nil {
			return Commission{}, err
		}
		if w.Frozen {
			return Commission{}, ErrWalletFrozen
		}
		newBalance := w.Balance.Add(in.Amount)
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2::numeric, updated_at = now() WHERE id = $1`, w.ID, newBalance.String()); err != nil {
			return Commission{}, fmt.Errorf("credit commission: %w", err)
		}
		meta := Metadata{
			MetaBalanceBefore: w.Balance.String(),
			MetaBalanceAfter:  newBalance.String(),
		}
		if in.Description != "" {
			meta[MetaDescription] = in.Description
		}
		if _, err := insertTransaction(ctx, tx, w.ID, in.Amount, TypeCommission, StatusCompleted, meta); err != nil {
			return Commission{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Commission{}, err
	}

	return Commission{
		ID:            id.String(),
		AgentID:       in.AgentID,
		SourcePartyID: in.SourcePartyID,
		Amount:        in.Amount,
		Revenue:       in.Revenue,
		Rate:          in.Rate,
		Type:          in.Type,
		Status:        CommissionPaid,
		DedupKey:      in.DedupKey,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// CommissionTotals sums commission amounts by status plus the revenue basis.
func (l *PostgresLedger) CommissionTotals(ctx context.Context, agentID string) (CommissionTotals, error) {
	agent, err := uuid.Parse(agentID)
	if err != nil {
		return CommissionTotals{}, fmt.Errorf("parse agent id: %w", err)
	}
	const query = `
        SELECT COALESCE(SUM(amount) FILTER (WHERE status = 'PAID'), 0)::text,
               COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0)::text,
               COALESCE(SUM(revenue), 0)::text
        FROM commissions WHERE agent_id = $1`
	var earned, pending, revenue string
	if err := l.db.QueryRow(ctx, query, agent).Scan(&earned, &pending, &revenue); err != nil {
		return CommissionTotals{}, fmt.Errorf("commission totals: %w", err)
	}
	totals := CommissionTotals{}
	if totals.Earned, err = money.FromString(earned); err != nil {
		return CommissionTotals{}, err
	}
	if totals.Pending, err = money.FromString(pending); err != nil {
		return CommissionTotals{}, err
	}
	if totals.Revenue, err = money.FromString(revenue); err != nil {
		return CommissionTotals{}, err
	}
	return totals, nil
}

// CommissionSeries groups commissions per day for charting.
func (l *PostgresLedger) CommissionSeries(ctx context.Context, agentID string, since time.Time) ([]SeriesPoint, error) {
	agent, err := uuid.Parse(agentID)
	if err != nil {
		return nil, fmt.Errorf("parse agent id: %w", err)
	}
	const query = `
        SELECT date_trunc('day', created_at) AS day,
               COALESCE(SUM(amount), 0)::text,
               COALESCE(SUM(revenue), 0)::text,
               COUNT(*)
        FROM commissions
        WHERE agent_id = $1 AND created_at >= $2
        GROUP BY day ORDER BY day`
	rows, err := l.db.Query(ctx, query, agent, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("commission series: %w", err)
	}
	defer rows.Close()

	var out []SeriesPoint
	for rows.Next() {
		var (
			p               SeriesPoint
			amount, revenue string
		)
		if err := rows.Scan(&p.Date, &amount, &revenue, &p.Count); err != nil {
			return nil, err
		}
		if p.Amount, err = money.FromString(amount); err != nil {
			return nil, err
		}
		if p.Revenue, err = money.FromString(revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCommissions returns commission rows newest first.
func (l *PostgresLedger) ListCommissions(ctx context.Context, agentID string, limit, offset int) ([]Commission, error) {
	agent, err := uuid.Parse(agentID)
	if err != nil {
		return nil, fmt.Errorf("parse agent id: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `SELECT `+commissionColumns+` FROM commissions
        WHERE agent_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, agent, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCommissions counts one agent's commissions of the given type.
func (l *PostgresLedger) CountCommissions(ctx context.Context, agentID string, typ CommissionType) (int, error) {
	agent, err := uuid.Parse(agentID)
	if err != nil {
		return 0, fmt.Errorf("parse agent id: %w", err)
	}
	var count int
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM commissions WHERE agent_id = $1 AND type = $2`, agent, string(typ)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count commissions: %w", err)
	}
	return count, nil
}

func ensureWalletTx(ctx context.Context, tx pgx.Tx, party uuid.UUID) error {
	_, err := tx.Exec(ctx, `INSERT INTO wallets (id, party_id, balance, currency, frozen, created_at, updated_at)
        VALUES ($1, $2, 0, $3, false, now(), now())
        ON CONFLICT (party_id) DO NOTHING`, uuid.New(), party, defaultCurrency)
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, party uuid.UUID) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE party_id = $1 FOR UPDATE`, party)
	return scanWallet(row)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, walletID string, amount money.Money, typ TransactionType, status Status, meta Metadata) (Transaction, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return Transaction{}, fmt.Errorf("encode metadata: %w", err)
	}
	id := uuid.New()
	var createdAt time.Time
	if err := tx.QueryRow(ctx, `INSERT INTO transactions (id, wallet_id, amount, type, status, metadata, created_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, now(), now())
        RETURNING created_at`,
		id, walletID, amount.String(), string(typ), string(status), payload).Scan(&createdAt); err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return Transaction{
		ID:        id.String(),
		WalletID:  walletID,
		Amount:    amount,
		Type:      typ,
		Status:    status,
		Metadata:  meta,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWallet(row scannable) (Wallet, error) {
	var (
		w       Wallet
		id      uuid.UUID
		party   uuid.UUID
		balance string
	)
	if err := row.Scan(&id, &party, &balance, &w.Currency, &w.Frozen, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	w.ID = id.String()
	w.PartyID = party.String()
	parsed, err := money.FromString(balance)
	if err != nil {
		return Wallet{}, err
	}
	w.Balance = parsed
	return w, nil
}

func scanTransaction(row scannable) (Transaction, error) {
	var (
		entry    Transaction
		id       uuid.UUID
		walletID uuid.UUID
		amount   string
		payload  []byte
	)
	if err := row.Scan(&id, &walletID, &amount, &entry.Type, &entry.Status, &payload, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	entry.ID = id.String()
	entry.WalletID = walletID.String()
	parsed, err := money.FromString(amount)
	if err != nil {
		return Transaction{}, err
	}
	entry.Amount = parsed
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Metadata); err != nil {
			return Transaction{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return entry, nil
}

func scanCommission(row scannable) (Commission, error) {
	var (
		c       Commission
		id      uuid.UUID
		agent   uuid.UUID
		source  *uuid.UUID
		amount  string
		revenue string
		rate    string
	)
	if err := row.Scan(&id, &agent, &source, &amount, &revenue, &rate, &c.Type, &c.Status, &c.DedupKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Commission{}, ErrNotFound
		}
		return Commission{}, fmt.Errorf("scan commission: %w", err)
	}
	c.ID = id.String()
	c.AgentID = agent.String()
	if source != nil {
		c.SourcePartyID = source.String()
	}
	var err error
	if c.Amount, err = money.FromString(amount); err != nil {
		return Commission{}, err
	}
	if c.Revenue, err = money.FromString(revenue); err != nil {
		return Commission{}, err
	}
	if c.Rate, err = decimal.NewFromString(rate); err != nil {
		return Commission{}, err
	}
	return c, nil
}
