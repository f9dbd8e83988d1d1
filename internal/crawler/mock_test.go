package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
	ttl   map[string]time.Duration
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
		ttl:   make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, fmt.Errorf("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	m.ttl[key] = expiration
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// fakePage replays a scripted page load
type fakePage struct {
	status             int
	navErr             error
	visible            bool
	visibleAfterScroll bool
	text               string
	title              string

	scrolled int
	closed   bool
	url      string
}

func okPage(text string) *fakePage {
	return &fakePage{status: 200, visible: true, text: text}
}

func (p *fakePage) Navigate(ctx context.Context, url string) (int, error) {
	p.url = url
	if p.navErr != nil {
		return 0, p.navErr
	}
	return p.status, nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if p.visible || (p.visibleAfterScroll && p.scrolled > 0) {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
}

func (p *fakePage) ScrollBy(ctx context.Context, dy int) error {
	p.scrolled++
	return nil
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	if selector == "title" {
		return p.title, nil
	}
	return p.text, nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// fakeBrowser hands out one scripted page per attempt
type fakeBrowser struct {
	pages      []*fakePage
	newPageErr error

	opened     int
	identities []Identity
}

func (b *fakeBrowser) NewPage(ctx context.Context, id Identity) (Page, error) {
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	b.identities = append(b.identities, id)
	p := b.pages[len(b.pages)-1]
	if b.opened < len(b.pages) {
		p = b.pages[b.opened]
	}
	b.opened++
	return p, nil
}

func (b *fakeBrowser) Close() error { return nil }

// recordingLog captures Job Log entries
type recordingLog struct {
	mu      sync.Mutex
	entries []models.ScrapeLogEntry
}

func (l *recordingLog) InsertScrapeLog(ctx context.Context, e *models.ScrapeLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *e)
	return nil
}

// recordingSleep records requested delays without waiting
type recordingSleep struct {
	delays []time.Duration
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func minJitter(min, max time.Duration) time.Duration { return min }
