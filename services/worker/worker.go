package worker

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/pricewatch/helpers"
	"sjsage522/pricewatch/internal/fleet"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
)

// Runner executes one fleet scrape
type Runner interface {
	RunFleetScrape(ctx context.Context, mode string) (*models.FleetResult, error)
}

// Worker runs a real fleet scrape on a cron schedule
type Worker struct {
	ctx      context.Context
	runner   Runner
	logger   helpers.LoggerInterface
	schedule string

	cron *cron.Cron
}

// NewWorker creates a new worker. An empty schedule disables it.
func NewWorker(
	ctx context.Context,
	runner Runner,
	logger helpers.LoggerInterface,
	schedule string,
) *Worker {
	cl := cronLogger{}
	return &Worker{
		ctx:      ctx,
		runner:   runner,
		logger:   logger,
		schedule: schedule,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers the schedule and starts the cron loop
func (w *Worker) Start() error {
	log := logger.ForWorker()
	if w.schedule == "" {
		log.Info().Msg("Scheduled scraping disabled")
		return nil
	}
	if _, err := w.cron.AddFunc(w.schedule, w.RunOnce); err != nil {
		return err
	}
	w.cron.Start()
	log.Info().Str("schedule", w.schedule).Msg("Scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running scrape to finish
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
	logger.ForWorker().Info().Msg("Scheduler stopped")
}

// RunOnce runs a real fleet scrape and writes every failure to the error log
func (w *Worker) RunOnce() {
	start := time.Now()
	result, err := w.runner.RunFleetScrape(w.ctx, fleet.ModeReal)
	if err != nil {
		w.logger.LogError("FleetRun", err)
	}
	if result == nil {
		return
	}

	for _, d := range result.Details {
		if !d.Success {
			w.logger.LogError(d.CompetitorName, errors.New(d.Error))
		}
	}

	if os.Getenv("PRICEWATCH_ENVIRONMENT") != "production" {
		w.logger.LogInfo("Scheduled scrape took %s: %d/%d succeeded (fallback: %t)",
			time.Since(start), result.Success, result.Total, result.FallbackUsed)
	}
}

// cronLogger routes cron's own messages to the worker logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.ForWorker().Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ForWorker().Error().Err(err).Fields(keysAndValues).Msg(msg)
}
