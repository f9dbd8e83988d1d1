package fleet

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sjsage522/pricewatch/helpers"
	"sjsage522/pricewatch/internal/crawler"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// DefaultPrices seed a competitor that has never been observed.
var DefaultPrices = map[string]float64{
	"ED Medication":       25.99,
	"Hair Loss Treatment": 45.00,
	"Skin Care":           32.50,
}

// FallbackPrice is used for products missing from DefaultPrices.
const FallbackPrice = 29.99

// SyntheticErrors are the failures a synthetic attempt can report.
var SyntheticErrors = []string{
	"Timeout waiting for selector",
	"Navigation timeout exceeded",
	"net::ERR_CONNECTION_REFUSED",
	"Page blocked by Cloudflare",
}

// Random is the subset of *rand.Rand the generator needs.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// lockedRandom serializes draws so overlapping runs can share one source.
type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRandom() *lockedRandom {
	return &lockedRandom{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Synthetic simulates extraction for demos and as the fallback when a real
// run cannot start. Results go through the same Recorder as real ones.
type Synthetic struct {
	store    store.Store
	recorder *Recorder

	FailureRate float64
	// MaxChange bounds the relative move from the previous price.
	MaxChange  float64
	LatencyMin time.Duration
	LatencyMax time.Duration

	rnd    Random
	sleep  crawler.SleepFunc
	jitter crawler.JitterFunc
	now    func() time.Time
}

// NewSynthetic creates a generator failing 20% of attempts and moving
// prices by at most 5%.
func NewSynthetic(st store.Store, recorder *Recorder) *Synthetic {
	return &Synthetic{
		store:       st,
		recorder:    recorder,
		FailureRate: 0.2,
		MaxChange:   0.05,
		LatencyMin:  500 * time.Millisecond,
		LatencyMax:  1500 * time.Millisecond,
		rnd:         newLockedRandom(),
		sleep:       helpers.Sleep,
		jitter:      helpers.RandomDuration,
		now:         time.Now,
	}
}

// Run simulates a fleet run over every competitor.
func (s *Synthetic) Run(ctx context.Context, mode string) (*models.FleetResult, error) {
	result := newResult(mode, s.now())

	competitors, err := s.store.ListCompetitors(ctx, false)
	if err != nil {
		return nil, errors.NewStorage("failed to list competitors", err)
	}

	for _, c := range competitors {
		d, err := s.RunOne(ctx, c)
		if err != nil {
			result.EndTime = s.now().UTC()
			return result, err
		}
		result.Add(d)
	}

	result.EndTime = s.now().UTC()
	logger.ForFleet().Info().
		Str("run_id", result.RunID).
		Str("mode", mode).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("Synthetic run finished")
	return result, nil
}

// RunOne simulates one attempt for c. It only fails when ctx ends during
// the simulated latency.
func (s *Synthetic) RunOne(ctx context.Context, c models.Competitor) (models.Detail, error) {
	d := models.Detail{
		CompetitorID:   c.ID,
		CompetitorName: c.Name,
		Product:        c.InternalProduct,
		URL:            c.ProductURL,
		Method:         models.MethodSynthetic,
		Attempts:       1,
	}

	if err := s.sleep(ctx, s.jitter(s.LatencyMin, s.LatencyMax)); err != nil {
		return d, err
	}

	if s.rnd.Float64() < s.FailureRate {
		d.Error = SyntheticErrors[s.rnd.IntN(len(SyntheticErrors))]
	} else {
		p, err := s.nextPrice(ctx, c)
		if err != nil {
			d.Error = errors.Message(err)
		} else {
			d.Success = true
			d.Price = models.PriceOf(p)
		}
	}

	s.recorder.RecordDetail(ctx, c, d)
	s.log(ctx, d)
	return d, nil
}

func (s *Synthetic) nextPrice(ctx context.Context, c models.Competitor) (float64, error) {
	last, err := s.store.LatestPriceObservation(ctx, c.ID, c.InternalProduct)
	if err != nil {
		return 0, err
	}
	if last == nil {
		if p, ok := DefaultPrices[c.InternalProduct]; ok {
			return p, nil
		}
		return FallbackPrice, nil
	}
	change := (s.rnd.Float64()*2 - 1) * s.MaxChange
	return Perturb(last.Price, change), nil
}

// Perturb moves price by the relative change and rounds to cents.
func Perturb(price, change float64) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(1 + change)).
		Round(2).
		InexactFloat64()
}

func (s *Synthetic) log(ctx context.Context, d models.Detail) {
	entry := models.ScrapeLogEntry{CompetitorID: d.CompetitorID, Outcome: models.OutcomeFailed, ErrorMessage: d.Error}
	if d.Success {
		entry.Outcome = models.OutcomeSuccess
		entry.Price = d.Price
	}
	if err := s.store.InsertScrapeLog(context.WithoutCancel(ctx), &entry); err != nil {
		logger.ForFleet().Error().Err(err).Str("competitor", d.CompetitorName).Msg("Failed to write job log")
	}
}
