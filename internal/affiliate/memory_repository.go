package affiliate

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	links  map[string]Link
	clicks []Click
}

// NewMemoryRepository builds an in-memory affiliate store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{links: make(map[string]Link)}
}

func (r *memoryRepository) CreateLink(_ context.Context, link Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.links {
		if existing.Slug == link.Slug {
			return ErrSlugTaken
		}
	}
	r.links[link.ID] = link
	return nil
}

func (r *memoryRepository) FindLink(_ context.Context, id string) (Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[id]
	if !ok {
		return Link{}, ErrNotFound
	}
	return link, nil
}

func (r *memoryRepository) FindLinkBySlug(_ context.Context, slug string) (Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, link := range r.links {
		if link.Slug == slug {
			return link, nil
		}
	}
	return Link{}, ErrNotFound
}

func (r *memoryRepository) ListLinks(_ context.Context, affiliateID string) ([]Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var links []Link
	for _, link := range r.links {
		if link.AffiliateID == affiliateID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

func (r *memoryRepository) RecordClick(_ context.Context, click Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[click.LinkID]; !ok {
		return ErrNotFound
	}
	r.clicks = append(r.clicks, click)
	return nil
}

func (r *memoryRepository) CountClicks(_ context.Context, linkID string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, click := range r.clicks {
		if click.LinkID == linkID && !click.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) ClickSeries(_ context.Context, affiliateID string, since time.Time) ([]ClickPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDay := make(map[time.Time]int)
	var days []time.Time
	for _, click := range r.clicks {
		link, ok := r.links[click.LinkID]
		if !ok || link.AffiliateID != affiliateID || click.CreatedAt.Before(since) {
			continue
		}
		day := click.CreatedAt.Truncate(24 * time.Hour)
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day]++
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]ClickPoint, 0, len(days))
	for _, day := range days {
		out = append(out, ClickPoint{Date: day, Count: byDay[day]})
	}
	return out, nil
}
