package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sjsage522/pricewatch/internal/alert"
	"sjsage522/pricewatch/internal/crawler"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
)

// fakeBrowser serves a price text per URL; unknown URLs return 404
type fakeBrowser struct {
	mu     sync.Mutex
	prices map[string]string
	visits []string
	closed bool
}

func (b *fakeBrowser) NewPage(ctx context.Context, id crawler.Identity) (crawler.Page, error) {
	return &fakePage{browser: b}, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakePage struct {
	browser *fakeBrowser
	text    string
}

func (p *fakePage) Navigate(ctx context.Context, url string) (int, error) {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.browser.visits = append(p.browser.visits, url)
	text, ok := p.browser.prices[url]
	if !ok {
		return 404, nil
	}
	p.text = text
	return 200, nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error { return nil }
func (p *fakePage) ScrollBy(ctx context.Context, dy int) error             { return nil }
func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	return p.text, nil
}
func (p *fakePage) Close() error { return nil }

// fixedRandom replays Float64 values in order and always picks index 0
type fixedRandom struct {
	floats []float64
	i      int
}

func (r *fixedRandom) Float64() float64 {
	f := r.floats[r.i%len(r.floats)]
	r.i++
	return f
}

func (r *fixedRandom) IntN(n int) int { return 0 }

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func minJitter(min, max time.Duration) time.Duration { return min }

type recordingRuns struct {
	runs []*models.FleetResult
}

func (r *recordingRuns) PublishRun(ctx context.Context, res *models.FleetResult) error {
	r.runs = append(r.runs, res)
	return nil
}

type harness struct {
	store     *store.Memory
	browser   *fakeBrowser
	launches  int
	launchErr error
	sleep     *recordingSleep
	rnd       *fixedRandom
	runs      *recordingRuns

	orchestrator *Orchestrator
	synthetic    *Synthetic
	service      *Service
}

func newHarness(opts ...ServiceOption) *harness {
	h := &harness{
		store:   store.NewMemory(),
		browser: &fakeBrowser{prices: map[string]string{}},
		sleep:   &recordingSleep{},
		rnd:     &fixedRandom{floats: []float64{0.5}},
		runs:    &recordingRuns{},
	}

	launcher := crawler.LauncherFunc(func(ctx context.Context) (crawler.Browser, error) {
		h.launches++
		if h.launchErr != nil {
			return nil, h.launchErr
		}
		return h.browser, nil
	})

	cfg := crawler.DefaultConfig()
	extractor := crawler.NewExtractor(cfg, h.store,
		crawler.WithSleep(h.sleep.Sleep),
		crawler.WithJitter(minJitter),
	)
	recorder := NewRecorder(h.store, alert.NewDetector(h.store))

	h.orchestrator = NewOrchestrator(h.store, launcher, extractor, recorder)
	// distinct from the retry delay and dwell so pacing waits can be counted
	h.orchestrator.PaceMin = 4 * time.Second
	h.orchestrator.sleep = h.sleep.Sleep
	h.orchestrator.jitter = minJitter

	h.synthetic = NewSynthetic(h.store, recorder)
	h.synthetic.sleep = h.sleep.Sleep
	h.synthetic.jitter = minJitter
	h.synthetic.rnd = h.rnd

	opts = append([]ServiceOption{WithRunPublisher(h.runs)}, opts...)
	h.service = NewService(h.store, h.orchestrator, h.synthetic, recorder, opts...)
	return h
}

func (h *harness) addCompetitor(name, product string, threshold float64, active bool) models.Competitor {
	c := models.Competitor{
		Name:            name,
		ProductURL:      fmt.Sprintf("https://%s.example.com/item", name),
		CSSSelector:     ".price",
		InternalProduct: product,
		AlertThreshold:  threshold,
		IsActive:        active,
	}
	if err := h.store.CreateCompetitor(context.Background(), &c); err != nil {
		panic(err)
	}
	return c
}

func (h *harness) addPrice(c models.Competitor, p float64) {
	o := models.PriceObservation{CompetitorID: c.ID, Product: c.InternalProduct, Price: p}
	if err := h.store.InsertPriceObservation(context.Background(), &o); err != nil {
		panic(err)
	}
}
