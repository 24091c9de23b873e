package affiliate

import "time"

// Link is a trackable referral link owned by an affiliate. Slug is the short
// public token embedded in the shared URL.
type Link struct {
	ID          string
	AffiliateID string
	Slug        string
	Name        string
	TargetURL   string
	CreatedAt   time.Time
}

// Click records one visit through a referral link. Visitor data is limited to
// what the redirect request carries.
type Click struct {
	ID        string
	LinkID    string
	IPAddress string
	UserAgent string
	Referer   string
	CreatedAt time.Time
}

// LinkStats aggregates activity for one link.
type LinkStats struct {
	LinkID string
	Clicks int
}

// ClickPoint is a per-day click rollup across an affiliate's links.
type ClickPoint struct {
	Date  time.Time
	Count int
}
