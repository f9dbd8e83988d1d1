package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/pkg/errors"
)

// Memory is an in-process Store used by tests and the demo driver.
type Memory struct {
	mu sync.RWMutex

	nextID      int64
	competitors map[int64]*models.Competitor
	history     []models.PriceObservation
	logs        []models.ScrapeLogEntry
	alerts      []models.Alert
	ourPrices   map[string]models.OurPrice

	now func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		competitors: make(map[int64]*models.Competitor),
		ourPrices:   make(map[string]models.OurPrice),
		now:         time.Now,
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return m.now().UTC()
	}
	return t.UTC()
}

func notFound(kind string, id int64) error {
	return errors.NewNotFound(kind, "no "+kind+" with id "+itoa(id))
}

func (m *Memory) ListCompetitors(_ context.Context, activeOnly bool) ([]models.Competitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Competitor, 0, len(m.competitors))
	for _, c := range m.competitors {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetCompetitor(_ context.Context, id int64) (*models.Competitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.competitors[id]
	if !ok {
		return nil, notFound("competitor", id)
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) FindCompetitorByURL(_ context.Context, url string, excludeID int64) (*models.Competitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.competitors {
		if c.ProductURL == url && c.ID != excludeID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateCompetitor(_ context.Context, c *models.Competitor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.id()
	c.CreatedAt = m.stamp(c.CreatedAt)
	cp := *c
	m.competitors[c.ID] = &cp
	return nil
}

func (m *Memory) UpdateCompetitor(_ context.Context, c *models.Competitor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.competitors[c.ID]
	if !ok {
		return notFound("competitor", c.ID)
	}
	c.CreatedAt = existing.CreatedAt
	c.LastSuccessAt = existing.LastSuccessAt
	c.LastError = existing.LastError
	cp := *c
	m.competitors[c.ID] = &cp
	return nil
}

func (m *Memory) DeleteCompetitor(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.competitors[id]; !ok {
		return notFound("competitor", id)
	}
	delete(m.competitors, id)

	history := m.history[:0]
	for _, o := range m.history {
		if o.CompetitorID != id {
			history = append(history, o)
		}
	}
	m.history = history

	logs := m.logs[:0]
	for _, e := range m.logs {
		if e.CompetitorID != id {
			logs = append(logs, e)
		}
	}
	m.logs = logs

	alerts := m.alerts[:0]
	for _, a := range m.alerts {
		if a.CompetitorID != id {
			alerts = append(alerts, a)
		}
	}
	m.alerts = alerts
	return nil
}

func (m *Memory) SetCompetitorStatus(_ context.Context, id int64, lastSuccessAt *time.Time, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.competitors[id]
	if !ok {
		return notFound("competitor", id)
	}
	if lastSuccessAt != nil {
		t := lastSuccessAt.UTC()
		c.LastSuccessAt = &t
	}
	c.LastError = lastError
	return nil
}

func (m *Memory) InsertPriceObservation(_ context.Context, o *models.PriceObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.competitors[o.CompetitorID]; !ok {
		return notFound("competitor", o.CompetitorID)
	}
	o.ID = m.id()
	o.ObservedAt = m.stamp(o.ObservedAt)
	m.history = append(m.history, *o)
	return nil
}

// observations returns the pair's observations newest first. Callers hold the lock.
func (m *Memory) observations(competitorID int64, product string) []models.PriceObservation {
	var out []models.PriceObservation
	for _, o := range m.history {
		if o.CompetitorID == competitorID && o.Product == product {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.After(out[j].ObservedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *Memory) LatestPriceObservation(ctx context.Context, competitorID int64, product string) (*models.PriceObservation, error) {
	return m.PriceObservationOffsetBy(ctx, competitorID, product, 0)
}

func (m *Memory) PriceObservationOffsetBy(_ context.Context, competitorID int64, product string, offset int) (*models.PriceObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obs := m.observations(competitorID, product)
	if offset < 0 || offset >= len(obs) {
		return nil, nil
	}
	o := obs[offset]
	return &o, nil
}

func (m *Memory) PriceHistory(_ context.Context, competitorID int64, since time.Time) ([]models.PriceObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.PriceObservation
	for _, o := range m.history {
		if competitorID != 0 && o.CompetitorID != competitorID {
			continue
		}
		if o.ObservedAt.Before(since) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.Before(out[j].ObservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) InsertScrapeLog(_ context.Context, e *models.ScrapeLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.competitors[e.CompetitorID]; !ok {
		return notFound("competitor", e.CompetitorID)
	}
	e.ID = m.id()
	e.At = m.stamp(e.At)
	m.logs = append(m.logs, *e)
	return nil
}

// sortedLogs returns matching logs newest first. Callers hold the lock.
func (m *Memory) sortedLogs(competitorID int64) []models.ScrapeLogEntry {
	var out []models.ScrapeLogEntry
	for _, e := range m.logs {
		if competitorID != 0 && e.CompetitorID != competitorID {
			continue
		}
		if c, ok := m.competitors[e.CompetitorID]; ok {
			e.CompetitorName = c.Name
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.After(out[j].At)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *Memory) ListScrapeLogs(_ context.Context, competitorID int64, limit int) ([]models.ScrapeLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultLogLimit
	}
	out := m.sortedLogs(competitorID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) LastScrapeLog(_ context.Context, competitorID int64) (*models.ScrapeLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sortedLogs(competitorID)
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (m *Memory) RecentFailureCount(_ context.Context, competitorID int64, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.logs {
		if e.CompetitorID == competitorID && e.Outcome == models.OutcomeFailed && e.At.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ScrapeStats(_ context.Context, since time.Time) (models.ScrapeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total, ok, failed, manual int
	for _, e := range m.logs {
		if !e.At.After(since) {
			continue
		}
		total++
		switch e.Outcome {
		case models.OutcomeSuccess:
			ok++
		case models.OutcomeFailed:
			failed++
		case models.OutcomeManual:
			manual++
		}
	}
	return statsFrom(total, ok, failed, manual), nil
}

func (m *Memory) InsertAlert(_ context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.competitors[a.CompetitorID]; !ok {
		return notFound("competitor", a.CompetitorID)
	}
	a.ID = m.id()
	a.CreatedAt = m.stamp(a.CreatedAt)
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *Memory) ListUndismissedAlerts(_ context.Context, limit int) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Alert
	for _, a := range m.alerts {
		if a.Dismissed {
			continue
		}
		if c, ok := m.competitors[a.CompetitorID]; ok {
			a.CompetitorName = c.Name
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DismissAlert(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Dismissed = true
			return nil
		}
	}
	return notFound("alert", id)
}

func (m *Memory) ListOurPrices(_ context.Context) ([]models.OurPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.OurPrice, 0, len(m.ourPrices))
	for _, p := range m.ourPrices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out, nil
}

func (m *Memory) UpsertOurPrice(_ context.Context, product string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ourPrices[product] = models.OurPrice{Product: product, Price: price, UpdatedAt: m.now().UTC()}
	return nil
}

func (m *Memory) Close() error { return nil }
