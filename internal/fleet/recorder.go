// Package fleet runs extraction across the configured competitors and feeds
// every price, real, synthetic or manual, through the same storage and alert
// pipeline.
package fleet

import (
	"context"
	"time"

	"sjsage522/pricewatch/internal/alert"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// Recorder persists outcomes and runs the alert check for new prices.
type Recorder struct {
	store    store.Store
	detector *alert.Detector
	now      func() time.Time
}

// NewRecorder creates a Recorder writing to st.
func NewRecorder(st store.Store, detector *alert.Detector) *Recorder {
	return &Recorder{store: st, detector: detector, now: time.Now}
}

// RecordPrice stores the observation and then evaluates it against the
// previous one. It returns the alert that fired, if any.
func (r *Recorder) RecordPrice(ctx context.Context, c models.Competitor, product string, price float64) (*models.Alert, error) {
	obs := &models.PriceObservation{
		CompetitorID: c.ID,
		Product:      product,
		Price:        price,
		ObservedAt:   r.now().UTC(),
	}
	if err := r.store.InsertPriceObservation(ctx, obs); err != nil {
		return nil, errors.NewStorage("failed to save price for "+c.Name, err)
	}

	a, err := r.detector.Check(ctx, c.ID, product, price)
	if err != nil {
		logger.ForAlerts().Error().Err(err).Int64("competitor_id", c.ID).Msg("Alert check failed")
		return nil, nil
	}
	return a, nil
}

// RecordSuccess stores a scraped price and marks the competitor healthy.
func (r *Recorder) RecordSuccess(ctx context.Context, c models.Competitor, price float64) error {
	if _, err := r.RecordPrice(ctx, c, c.InternalProduct, price); err != nil {
		return err
	}
	at := r.now().UTC()
	if err := r.store.SetCompetitorStatus(ctx, c.ID, &at, ""); err != nil {
		return errors.NewStorage("failed to update status for "+c.Name, err)
	}
	return nil
}

// RecordFailure keeps the last success time and stores the error text.
func (r *Recorder) RecordFailure(ctx context.Context, c models.Competitor, message string) error {
	if err := r.store.SetCompetitorStatus(ctx, c.ID, c.LastSuccessAt, message); err != nil {
		return errors.NewStorage("failed to update status for "+c.Name, err)
	}
	return nil
}

// RecordDetail applies the outcome of one Detail, even when ctx was
// cancelled mid-run. Storage errors are logged and never abort the run.
func (r *Recorder) RecordDetail(ctx context.Context, c models.Competitor, d models.Detail) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if d.Success && d.Price != nil {
		err = r.RecordSuccess(ctx, c, *d.Price)
	} else {
		err = r.RecordFailure(ctx, c, d.Error)
	}
	if err != nil {
		logger.ForFleet().Error().Err(err).Str("competitor", c.Name).Msg("Failed to record outcome")
	}
}
