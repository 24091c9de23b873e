package affiliate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexusplay/nexusplay/internal/commission"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

func newService(t *testing.T) (*Service, ledger.Ledger) {
	t.Helper()
	l := ledger.NewInMemory()
	engine := commission.NewEngine(l, nil)
	return NewService(NewMemoryRepository(), engine, money.MustFromString("50.00")), l
}

func TestCreateLinkGeneratesSlug(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "aff-1", "Summer promo", "https://play.example.com", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(link.Slug) != 8 {
		t.Fatalf("expected generated 8-char slug, got %q", link.Slug)
	}

	links, stats, err := svc.Links(ctx, "aff-1")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links) != 1 || len(stats) != 1 || stats[0].Clicks != 0 {
		t.Fatalf("unexpected listing: %d links, %v", len(links), stats)
	}
}

func TestCreateLinkCustomSlug(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateLink(ctx, "aff-1", "promo", "", "summer-2026"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateLink(ctx, "aff-2", "other", "", "summer-2026"); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
	if _, err := svc.CreateLink(ctx, "aff-1", "bad", "", "Bad Slug!"); !errors.Is(err, ErrInvalidSlug) {
		t.Fatalf("expected ErrInvalidSlug, got %v", err)
	}
}

func TestTrackCountsClicks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "aff-1", "promo", "https://play.example.com", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Track(ctx, link.Slug, "10.0.0.1", "test-agent", ""); err != nil {
			t.Fatalf("track: %v", err)
		}
	}
	if _, err := svc.Track(ctx, "no-such-slug", "", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	count, err := svc.ClickCount(ctx, "aff-1", time.Time{})
	if err != nil {
		t.Fatalf("click count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 clicks, got %d", count)
	}
}

func TestConvertPaysOncePerPlayer(t *testing.T) {
	svc, l := newService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "aff-1", "promo", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	c, err := svc.Convert(ctx, link.ID, "player-9")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if c.Amount.String() != "50.00" {
		t.Fatalf("expected 50.00 CPA, got %s", c.Amount)
	}

	// A second first-deposit signal for the same player pays nothing.
	if _, err := svc.Convert(ctx, link.ID, "player-9"); err != nil {
		t.Fatalf("repeat convert must be a no-op, got %v", err)
	}
	bal, _ := l.Balance(ctx, "aff-1")
	if bal.String() != "50.00" {
		t.Fatalf("expected single payout, balance %s", bal)
	}

	// A different player converts independently.
	if _, err := svc.Convert(ctx, link.ID, "player-10"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	bal, _ = l.Balance(ctx, "aff-1")
	if bal.String() != "100.00" {
		t.Fatalf("expected 100.00, got %s", bal)
	}
}

func TestClickSeriesRollsUpByDay(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "aff-1", "promo", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := svc.CreateLink(ctx, "aff-2", "other", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Track(ctx, link.Slug, "10.0.0.1", "ua", ""); err != nil {
			t.Fatalf("track: %v", err)
		}
	}
	if _, err := svc.Track(ctx, other.Slug, "10.0.0.2", "ua", ""); err != nil {
		t.Fatalf("track: %v", err)
	}

	points, err := svc.ClickSeries(ctx, "aff-1", time.Time{})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected one day bucket, got %d", len(points))
	}
	if points[0].Count != 3 {
		t.Fatalf("other affiliates' clicks must not leak in, got %d", points[0].Count)
	}
}
