package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nexusplay/nexusplay/internal/affiliate"
	"github.com/nexusplay/nexusplay/internal/identity"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

// Service is a read-only façade aggregating dashboard figures from the
// ledger, the identity store and the affiliate store. It never mutates
// anything.
type Service struct {
	ledger ledger.Ledger
	users  identity.Repository
	links  *affiliate.Service
}

// NewService builds a reporting service. links may be nil when the affiliate
// program is disabled.
func NewService(l ledger.Ledger, users identity.Repository, links *affiliate.Service) *Service {
	return &Service{ledger: l, users: users, links: links}
}

// AgentOverview is the agent dashboard summary.
type AgentOverview struct {
	AgentID         string      `json:"agent_id"`
	PlayerCount     int         `json:"player_count"`
	TotalEarned     money.Money `json:"total_earned"`
	PendingEarnings money.Money `json:"pending_earnings"`
	TotalRevenue    money.Money `json:"total_revenue"`
	WalletBalance   money.Money `json:"wallet_balance"`
}

// AffiliateOverview is the affiliate dashboard summary. Conversions counts
// referred players whose first deposit paid out a CPA commission.
type AffiliateOverview struct {
	AffiliateID   string      `json:"affiliate_id"`
	Clicks        int         `json:"clicks"`
	Registrations int         `json:"registrations"`
	Conversions   int         `json:"conversions"`
	TotalEarned   money.Money `json:"total_earned"`
	TotalRevenue  money.Money `json:"total_revenue"`
}

// PerformancePoint is one day of affiliate funnel activity.
type PerformancePoint struct {
	Date        string `json:"date"`
	Clicks      int    `json:"clicks"`
	Conversions int    `json:"conversions"`
}

// PayoutFunnel counts withdrawal transactions per lifecycle stage.
type PayoutFunnel struct {
	Pending  int `json:"pending"`
	Paid     int `json:"paid"`
	Rejected int `json:"rejected"`
}

// ChartPoint is one day in an earnings chart.
type ChartPoint struct {
	Date    string      `json:"date"`
	Amount  money.Money `json:"amount"`
	Revenue money.Money `json:"revenue"`
	Count   int         `json:"count"`
}

// AgentOverview aggregates player count, commission totals and the wallet
// snapshot for one agent.
func (s *Service) AgentOverview(ctx context.Context, agentID string) (AgentOverview, error) {
	playerCount, err := s.users.CountByAgent(ctx, agentID)
	if err != nil {
		return AgentOverview{}, err
	}
	totals, err := s.ledger.CommissionTotals(ctx, agentID)
	if err != nil {
		return AgentOverview{}, err
	}
	// Agents that never earned have no wallet yet; report zero.
	balance, err := s.ledger.Balance(ctx, agentID)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return AgentOverview{}, err
	}
	return AgentOverview{
		AgentID:         agentID,
		PlayerCount:     playerCount,
		TotalEarned:     totals.Earned,
		PendingEarnings: totals.Pending,
		TotalRevenue:    totals.Revenue,
		WalletBalance:   balance,
	}, nil
}

// EarningsChart returns per-day commission rollups over the trailing window.
func (s *Service) EarningsChart(ctx context.Context, agentID string, days int) ([]ChartPoint, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	points, err := s.ledger.CommissionSeries(ctx, agentID, since)
	if err != nil {
		return nil, err
	}
	out := make([]ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, ChartPoint{
			Date:    p.Date.UTC().Format("2006-01-02"),
			Amount:  p.Amount,
			Revenue: p.Revenue,
			Count:   p.Count,
		})
	}
	return out, nil
}

// AffiliateOverview aggregates the full referral funnel for one affiliate:
// clicks, referred signups, first-deposit conversions and earnings.
func (s *Service) AffiliateOverview(ctx context.Context, affiliateID string) (AffiliateOverview, error) {
	overview := AffiliateOverview{AffiliateID: affiliateID}

	if s.links != nil {
		clicks, err := s.links.ClickCount(ctx, affiliateID, time.Time{})
		if err != nil {
			return AffiliateOverview{}, err
		}
		overview.Clicks = clicks

		links, _, err := s.links.Links(ctx, affiliateID)
		if err != nil {
			return AffiliateOverview{}, err
		}
		for _, link := range links {
			referred, err := s.users.CountByAffiliateLink(ctx, link.ID)
			if err != nil {
				return AffiliateOverview{}, err
			}
			overview.Registrations += referred
		}
	}

	conversions, err := s.ledger.CountCommissions(ctx, affiliateID, ledger.CommissionCPA)
	if err != nil {
		return AffiliateOverview{}, err
	}
	overview.Conversions = conversions

	totals, err := s.ledger.CommissionTotals(ctx, affiliateID)
	if err != nil {
		return AffiliateOverview{}, err
	}
	overview.TotalEarned = totals.Earned
	overview.TotalRevenue = totals.Revenue
	return overview, nil
}

// Performance returns per-day clicks and conversions over the trailing
// window, merged on the day bucket.
func (s *Service) Performance(ctx context.Context, affiliateID string, days int) ([]PerformancePoint, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	byDay := make(map[string]*PerformancePoint)
	var order []string
	point := func(date string) *PerformancePoint {
		p, ok := byDay[date]
		if !ok {
			p = &PerformancePoint{Date: date}
			byDay[date] = p
			order = append(order, date)
		}
		return p
	}

	if s.links != nil {
		clicks, err := s.links.ClickSeries(ctx, affiliateID, since)
		if err != nil {
			return nil, err
		}
		for _, c := range clicks {
			point(c.Date.UTC().Format("2006-01-02")).Clicks = c.Count
		}
	}

	conversions, err := s.ledger.CommissionSeries(ctx, affiliateID, since)
	if err != nil {
		return nil, err
	}
	for _, c := range conversions {
		point(c.Date.UTC().Format("2006-01-02")).Conversions = c.Count
	}

	sort.Strings(order)
	out := make([]PerformancePoint, 0, len(order))
	for _, date := range order {
		out = append(out, *byDay[date])
	}
	return out, nil
}

// WithdrawalFunnel counts withdrawals per lifecycle stage across the whole
// platform.
func (s *Service) WithdrawalFunnel(ctx context.Context) (PayoutFunnel, error) {
	funnel := PayoutFunnel{}
	for _, stage := range []struct {
		status ledger.Status
		dst    *int
	}{
		{ledger.StatusPending, &funnel.Pending},
		{ledger.StatusPaid, &funnel.Paid},
		{ledger.StatusRejected, &funnel.Rejected},
	} {
		count, err := s.ledger.CountTransactions(ctx, ledger.Filter{
			Type:   ledger.TypeWithdrawal,
			Status: stage.status,
		})
		if err != nil {
			return PayoutFunnel{}, err
		}
		*stage.dst = count
	}
	return funnel, nil
}

// Statement lists a party's transactions for export, newest first.
func (s *Service) Statement(ctx context.Context, partyID string, f ledger.Filter) ([]ledger.Transaction, error) {
	f.PartyID = partyID
	f.WalletID = ""
	return s.ledger.ListTransactions(ctx, f)
}
