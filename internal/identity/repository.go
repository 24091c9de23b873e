package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	ListByAgent(ctx context.Context, agentID, search string, limit, offset int) ([]User, error)
	CountByAgent(ctx context.Context, agentID string) (int, error)
	CountByAffiliateLink(ctx context.Context, linkID string) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
	BumpTokenVersion(ctx context.Context, id string) (int, error)
}

const userColumns = `id, email, full_name, password_hash, role, agent_id, affiliate_link_id, active, token_version, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, full_name, password_hash, role, agent_id, affiliate_link_id, active, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		userID, strings.ToLower(user.Email), user.FullName, user.PasswordHash, user.Role,
		user.AgentID, user.AffiliateLinkID, user.Active, user.TokenVersion, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

// ListByAgent returns the players onboarded under an agent, newest first. A
// non-empty search narrows to users whose email or name contains it.
func (r *PostgresRepository) ListByAgent(ctx context.Context, agentID, search string, limit, offset int) ([]User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users
        WHERE agent_id = $1 AND ($2 = '' OR email ILIKE '%' || $2 || '%' OR full_name ILIKE '%' || $2 || '%')
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`, agentID, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountByAgent counts the players onboarded under an agent.
func (r *PostgresRepository) CountByAgent(ctx context.Context, agentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE agent_id = $1`, agentID).Scan(&count)
	return count, err
}

// CountByAffiliateLink counts the users who signed up through a referral link.
func (r *PostgresRepository) CountByAffiliateLink(ctx context.Context, linkID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE affiliate_link_id = $1`, linkID).Scan(&count)
	return count, err
}

// SetActive toggles the account's active flag.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET active = $1 WHERE id = $2`, active, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BumpTokenVersion increments the token version, invalidating outstanding
// refresh tokens.
func (r *PostgresRepository) BumpTokenVersion(ctx context.Context, id string) (int, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var version int
	err = r.db.QueryRow(ctx, `UPDATE users SET token_version = token_version + 1 WHERE id = $1
        RETURNING token_version`, userID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return version, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		id              uuid.UUID
		agentID         *string
		affiliateLinkID *string
		createdAt       time.Time
		user            User
	)
	err := row.Scan(&id, &user.Email, &user.FullName, &user.PasswordHash, &user.Role,
		&agentID, &affiliateLinkID, &user.Active, &user.TokenVersion, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	if agentID != nil {
		user.AgentID = *agentID
	}
	if affiliateLinkID != nil {
		user.AffiliateLinkID = *affiliateLinkID
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
