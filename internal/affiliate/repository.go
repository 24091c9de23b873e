package affiliate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the link does not exist.
var ErrNotFound = errors.New("link not found")

// ErrSlugTaken indicates the slug is already in use.
var ErrSlugTaken = errors.New("slug already in use")

// Repository persists referral links and their click events.
type Repository interface {
	CreateLink(ctx context.Context, link Link) error
	FindLink(ctx context.Context, id string) (Link, error)
	FindLinkBySlug(ctx context.Context, slug string) (Link, error)
	ListLinks(ctx context.Context, affiliateID string) ([]Link, error)
	RecordClick(ctx context.Context, click Click) error
	CountClicks(ctx context.Context, linkID string, since time.Time) (int, error)
	ClickSeries(ctx context.Context, affiliateID string, since time.Time) ([]ClickPoint, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed affiliate repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateLink inserts a referral link.
func (r *PostgresRepository) CreateLink(ctx context.Context, link Link) error {
	linkID, err := uuid.Parse(link.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO affiliate_links (id, affiliate_id, slug, name, target_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		linkID, link.AffiliateID, link.Slug, link.Name, link.TargetURL, link.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

// FindLink fetches a link by identifier.
func (r *PostgresRepository) FindLink(ctx context.Context, id string) (Link, error) {
	linkID, err := uuid.Parse(id)
	if err != nil {
		return Link{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, affiliate_id, slug, name, target_url, created_at
        FROM affiliate_links WHERE id = $1`, linkID)
	return scanLink(row)
}

// FindLinkBySlug resolves the public slug used in shared URLs.
func (r *PostgresRepository) FindLinkBySlug(ctx context.Context, slug string) (Link, error) {
	row := r.db.QueryRow(ctx, `SELECT id, affiliate_id, slug, name, target_url, created_at
        FROM affiliate_links WHERE slug = $1`, slug)
	return scanLink(row)
}

// ListLinks returns the affiliate's links, newest first.
func (r *PostgresRepository) ListLinks(ctx context.Context, affiliateID string) ([]Link, error) {
	rows, err := r.db.Query(ctx, `SELECT id, affiliate_id, slug, name, target_url, created_at
        FROM affiliate_links WHERE affiliate_id = $1 ORDER BY created_at DESC`, affiliateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// RecordClick appends a click event.
func (r *PostgresRepository) RecordClick(ctx context.Context, click Click) error {
	clickID, err := uuid.Parse(click.ID)
	if err != nil {
		return err
	}
	linkID, err := uuid.Parse(click.LinkID)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `INSERT INTO click_events (id, link_id, ip_address, user_agent, referer, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		clickID, linkID, click.IPAddress, click.UserAgent, click.Referer, click.CreatedAt.UTC())
	return err
}

// CountClicks counts click events for a link since the given time. A zero
// since counts all clicks.
func (r *PostgresRepository) CountClicks(ctx context.Context, linkID string, since time.Time) (int, error) {
	id, err := uuid.Parse(linkID)
	if err != nil {
		return 0, ErrNotFound
	}
	var count int
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM click_events WHERE link_id = $1 AND created_at >= $2`,
		id, since.UTC()).Scan(&count)
	return count, err
}

// ClickSeries groups clicks per day across all of the affiliate's links.
func (r *PostgresRepository) ClickSeries(ctx context.Context, affiliateID string, since time.Time) ([]ClickPoint, error) {
	rows, err := r.db.Query(ctx, `SELECT date_trunc('day', e.created_at) AS day, COUNT(*)
        FROM click_events e
        JOIN affiliate_links l ON l.id = e.link_id
        WHERE l.affiliate_id = $1 AND e.created_at >= $2
        GROUP BY day ORDER BY day`, affiliateID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClickPoint
	for rows.Next() {
		var p ClickPoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (Link, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		link      Link
	)
	err := row.Scan(&id, &link.AffiliateID, &link.Slug, &link.Name, &link.TargetURL, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}
	link.ID = id.String()
	link.CreatedAt = createdAt.UTC()
	return link, nil
}
