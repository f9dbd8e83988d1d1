// Package alert decides when a new observation moved far enough from the
// previous one to warrant an Alert, and fans alerts out to notifiers.
package alert

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
)

// Store is the persistence the detector needs.
type Store interface {
	GetCompetitor(ctx context.Context, id int64) (*models.Competitor, error)
	PriceObservationOffsetBy(ctx context.Context, competitorID int64, product string, offset int) (*models.PriceObservation, error)
	InsertAlert(ctx context.Context, a *models.Alert) error
}

// Notifier is told about every alert that was stored.
type Notifier interface {
	NotifyAlert(ctx context.Context, a models.Alert) error
}

// Evaluate returns the percent change from old to new and whether its
// magnitude reaches threshold. A non-positive old price never fires.
func Evaluate(oldPrice, newPrice, threshold float64) (float64, bool) {
	if oldPrice <= 0 {
		return 0, false
	}
	pct := (newPrice - oldPrice) / oldPrice * 100
	return pct, math.Abs(pct) >= threshold
}

// Detector compares each new observation with the one before it.
type Detector struct {
	store     Store
	notifiers []Notifier
}

// NewDetector creates a detector; notifiers may be empty.
func NewDetector(store Store, notifiers ...Notifier) *Detector {
	return &Detector{store: store, notifiers: notifiers}
}

// Check must run after the observation carrying newPrice was inserted: the
// previous observation is the second newest for the pair. It returns the
// stored alert, or nil when none fired.
func (d *Detector) Check(ctx context.Context, competitorID int64, product string, newPrice float64) (*models.Alert, error) {
	c, err := d.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return nil, err
	}

	prev, err := d.store.PriceObservationOffsetBy(ctx, competitorID, product, 1)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}

	pct, fire := Evaluate(prev.Price, newPrice, c.AlertThreshold)
	if !fire {
		return nil, nil
	}

	a := &models.Alert{
		CompetitorID:   competitorID,
		CompetitorName: c.Name,
		Product:        product,
		OldPrice:       prev.Price,
		NewPrice:       newPrice,
		PercentChange:  pct,
	}
	if err := d.store.InsertAlert(ctx, a); err != nil {
		return nil, err
	}

	log := logger.ForAlerts()
	log.Info().
		Str("competitor", c.Name).
		Str("product", product).
		Float64("old_price", a.OldPrice).
		Float64("new_price", a.NewPrice).
		Str("change", FormatPercent(pct)).
		Msg("Price alert")

	for _, n := range d.notifiers {
		if err := n.NotifyAlert(ctx, *a); err != nil {
			log.Warn().Err(err).Msg("Alert notification failed")
		}
	}
	return a, nil
}

// FormatPercent renders a signed percentage with one decimal, e.g. "-12.5%".
func FormatPercent(pct float64) string {
	s := decimal.NewFromFloat(pct).StringFixed(1)
	if pct > 0 {
		s = "+" + s
	}
	return s + "%"
}

// Describe renders an alert as a one-line human message.
func Describe(a models.Alert) string {
	direction := "raised"
	if a.NewPrice < a.OldPrice {
		direction = "dropped"
	}
	return fmt.Sprintf("%s %s %s from $%s to $%s (%s)",
		a.CompetitorName, direction, a.Product,
		decimal.NewFromFloat(a.OldPrice).StringFixed(2),
		decimal.NewFromFloat(a.NewPrice).StringFixed(2),
		FormatPercent(a.PercentChange))
}
