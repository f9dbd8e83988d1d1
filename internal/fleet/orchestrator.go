package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sjsage522/pricewatch/helpers"
	"sjsage522/pricewatch/internal/crawler"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// Run modes reported in FleetResult.Mode
const (
	ModeReal = "real"
	ModeDemo = "demo"
	// ModeMock is the legacy name for ModeDemo.
	ModeMock = "mock"
)

// Orchestrator drives one browser session across every competitor, one at
// a time, with a randomized pause between competitors. The active flag only
// affects reporting; every stored competitor is attempted.
type Orchestrator struct {
	store     store.Store
	launcher  crawler.Launcher
	extractor *crawler.Extractor
	recorder  *Recorder

	PaceMin time.Duration
	PaceMax time.Duration

	sleep  crawler.SleepFunc
	jitter crawler.JitterFunc
	now    func() time.Time
}

// NewOrchestrator creates an Orchestrator pacing 2 to 5 seconds between competitors.
func NewOrchestrator(st store.Store, launcher crawler.Launcher, extractor *crawler.Extractor, recorder *Recorder) *Orchestrator {
	return &Orchestrator{
		store:     st,
		launcher:  launcher,
		extractor: extractor,
		recorder:  recorder,
		PaceMin:   2 * time.Second,
		PaceMax:   5 * time.Second,
		sleep:     helpers.Sleep,
		jitter:    helpers.RandomDuration,
		now:       time.Now,
	}
}

func newResult(mode string, start time.Time) *models.FleetResult {
	return &models.FleetResult{
		RunID:     uuid.NewString(),
		Mode:      mode,
		Details:   []models.Detail{},
		StartTime: start.UTC(),
	}
}

// Run extracts every competitor. An error that prevents the run from
// starting is an orchestration error and no result is returned. If ctx ends
// between competitors the partial result is returned with ctx's error.
func (o *Orchestrator) Run(ctx context.Context) (*models.FleetResult, error) {
	log := logger.ForFleet()
	result := newResult(ModeReal, o.now())

	competitors, err := o.store.ListCompetitors(ctx, false)
	if err != nil {
		return nil, errors.NewOrchestration("failed to list competitors", err)
	}
	if len(competitors) == 0 {
		log.Info().Msg("No competitors to scrape")
		result.EndTime = o.now().UTC()
		return result, nil
	}

	browser, err := o.launcher.Launch(ctx)
	if err != nil {
		return nil, errors.NewOrchestration("failed to launch browser", err)
	}
	defer browser.Close()

	log.Info().Str("run_id", result.RunID).Int("competitors", len(competitors)).Msg("Starting fleet run")

	for i, c := range competitors {
		if i > 0 {
			if err := o.sleep(ctx, o.jitter(o.PaceMin, o.PaceMax)); err != nil {
				result.EndTime = o.now().UTC()
				return result, err
			}
		}
		result.Add(o.scrape(ctx, browser, c))
	}

	result.EndTime = o.now().UTC()
	log.Info().
		Str("run_id", result.RunID).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Dur("elapsed", result.EndTime.Sub(result.StartTime)).
		Msg("Fleet run finished")
	return result, nil
}

// RunOne launches a browser for a single competitor.
func (o *Orchestrator) RunOne(ctx context.Context, c models.Competitor) (models.Detail, error) {
	browser, err := o.launcher.Launch(ctx)
	if err != nil {
		return models.Detail{}, errors.NewOrchestration("failed to launch browser", err)
	}
	defer browser.Close()
	return o.scrape(ctx, browser, c), nil
}

func (o *Orchestrator) scrape(ctx context.Context, b crawler.Browser, c models.Competitor) models.Detail {
	d := o.extractor.Extract(ctx, b, c)
	o.recorder.RecordDetail(ctx, c, d)
	return d
}
