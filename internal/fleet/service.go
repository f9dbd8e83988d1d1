package fleet

import (
	"context"
	"strconv"

	"sjsage522/pricewatch/config"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// RunPublisher receives the summary of every finished fleet run.
type RunPublisher interface {
	PublishRun(ctx context.Context, r *models.FleetResult) error
}

// Service is the entry point used by the API and the scheduler.
type Service struct {
	store        store.Store
	orchestrator *Orchestrator
	synthetic    *Synthetic
	recorder     *Recorder
	runs         RunPublisher
	singleMode   string
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithRunPublisher publishes a summary after every fleet run
func WithRunPublisher(p RunPublisher) ServiceOption {
	return func(s *Service) { s.runs = p }
}

// WithSingleScrapeMode selects synthetic or real extraction for single scrapes
func WithSingleScrapeMode(mode string) ServiceOption {
	return func(s *Service) { s.singleMode = mode }
}

// NewService wires the orchestrator and synthetic generator around one recorder.
func NewService(st store.Store, orchestrator *Orchestrator, synthetic *Synthetic, recorder *Recorder, opts ...ServiceOption) *Service {
	s := &Service{
		store:        st,
		orchestrator: orchestrator,
		synthetic:    synthetic,
		recorder:     recorder,
		singleMode:   config.SingleModeSynthetic,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunFleetScrape runs every competitor. In real mode a run that
// cannot start falls back to synthetic results with FallbackUsed set.
func (s *Service) RunFleetScrape(ctx context.Context, mode string) (*models.FleetResult, error) {
	log := logger.ForFleet()

	var (
		result *models.FleetResult
		err    error
	)
	switch mode {
	case ModeReal, "":
		result, err = s.orchestrator.Run(ctx)
		if err != nil && errors.IsOrchestration(err) {
			log.Warn().Err(err).Msg("Real scrape failed, using synthetic fallback")
			result, err = s.synthetic.Run(ctx, ModeReal)
			if result != nil {
				result.FallbackUsed = true
			}
		}
	case ModeDemo, ModeMock:
		result, err = s.synthetic.Run(ctx, ModeDemo)
	default:
		return nil, errors.NewInvalidInput("mode", "unknown scrape mode "+strconv.Quote(mode))
	}

	if result != nil {
		s.publish(ctx, result)
	}
	return result, err
}

// RunSingleScrape scrapes one competitor with the configured single mode.
func (s *Service) RunSingleScrape(ctx context.Context, competitorID int64) (*models.Detail, error) {
	c, err := s.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return nil, err
	}

	var d models.Detail
	if s.singleMode == config.SingleModeReal {
		d, err = s.orchestrator.RunOne(ctx, *c)
	} else {
		d, err = s.synthetic.RunOne(ctx, *c)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) publish(ctx context.Context, r *models.FleetResult) {
	if s.runs == nil {
		return
	}
	if err := s.runs.PublishRun(context.WithoutCancel(ctx), r); err != nil {
		logger.ForFleet().Warn().Err(err).Str("run_id", r.RunID).Msg("Failed to publish run summary")
	}
}
