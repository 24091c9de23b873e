package affiliate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexusplay/nexusplay/internal/commission"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

// ErrInvalidSlug indicates a custom slug with characters outside [a-z0-9-].
var ErrInvalidSlug = errors.New("slug may only contain lowercase letters, digits and dashes")

// Service manages referral links, click tracking and first-deposit
// conversions. A conversion pays the link owner a flat CPA commission exactly
// once per referred player.
type Service struct {
	repo      Repository
	engine    *commission.Engine
	cpaAmount money.Money
}

// NewService builds an affiliate service. cpaAmount is the flat commission
// paid per converted player.
func NewService(repo Repository, engine *commission.Engine, cpaAmount money.Money) *Service {
	return &Service{repo: repo, engine: engine, cpaAmount: cpaAmount}
}

// CreateLink registers a referral link. An empty slug gets a generated one.
func (s *Service) CreateLink(ctx context.Context, affiliateID, name, targetURL, slug string) (Link, error) {
	if slug == "" {
		slug = uuid.New().String()[:8]
	} else if !validSlug(slug) {
		return Link{}, ErrInvalidSlug
	}
	link := Link{
		ID:          uuid.New().String(),
		AffiliateID: affiliateID,
		Slug:        slug,
		Name:        name,
		TargetURL:   targetURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		return Link{}, err
	}
	return link, nil
}

// Links returns the affiliate's links with click counts.
func (s *Service) Links(ctx context.Context, affiliateID string) ([]Link, []LinkStats, error) {
	links, err := s.repo.ListLinks(ctx, affiliateID)
	if err != nil {
		return nil, nil, err
	}
	stats := make([]LinkStats, 0, len(links))
	for _, link := range links {
		clicks, err := s.repo.CountClicks(ctx, link.ID, time.Time{})
		if err != nil {
			return nil, nil, err
		}
		stats = append(stats, LinkStats{LinkID: link.ID, Clicks: clicks})
	}
	return links, stats, nil
}

// Track resolves a slug, records the click and returns the link so the
// handler can redirect.
func (s *Service) Track(ctx context.Context, slug, ip, userAgent, referer string) (Link, error) {
	link, err := s.repo.FindLinkBySlug(ctx, slug)
	if err != nil {
		return Link{}, err
	}
	click := Click{
		ID:        uuid.New().String(),
		LinkID:    link.ID,
		IPAddress: ip,
		UserAgent: userAgent,
		Referer:   referer,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.RecordClick(ctx, click); err != nil {
		return Link{}, err
	}
	return link, nil
}

// Convert pays the link owner the flat CPA commission for a referred player's
// first deposit. Repeat calls for the same player are no-ops.
func (s *Service) Convert(ctx context.Context, linkID, playerID string) (ledger.Commission, error) {
	link, err := s.repo.FindLink(ctx, linkID)
	if err != nil {
		return ledger.Commission{}, err
	}
	c, err := s.engine.Accrue(ctx, commission.AccrueInput{
		AgentID:       link.AffiliateID,
		SourcePartyID: playerID,
		Type:          ledger.CommissionCPA,
		FlatAmount:    s.cpaAmount,
		DedupKey:      commission.DedupKeyFor(playerID, ledger.CommissionCPA),
	})
	if errors.Is(err, ledger.ErrDuplicateAccrual) {
		return ledger.Commission{}, nil
	}
	return c, err
}

// ClickCount counts clicks across all of the affiliate's links since the
// given time.
func (s *Service) ClickCount(ctx context.Context, affiliateID string, since time.Time) (int, error) {
	links, err := s.repo.ListLinks(ctx, affiliateID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, link := range links {
		clicks, err := s.repo.CountClicks(ctx, link.ID, since)
		if err != nil {
			return 0, err
		}
		total += clicks
	}
	return total, nil
}

// ClickSeries returns per-day click rollups across the affiliate's links
// since the given time.
func (s *Service) ClickSeries(ctx context.Context, affiliateID string, since time.Time) ([]ClickPoint, error) {
	return s.repo.ClickSeries(ctx, affiliateID, since)
}

func validSlug(slug string) bool {
	if len(slug) < 3 || len(slug) > 64 {
		return false
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return !strings.HasPrefix(slug, "-") && !strings.HasSuffix(slug, "-")
}
