// Package store persists competitors, observations, alerts, our prices and
// the Job Log behind a single repository interface.
package store

import (
	"context"
	"strconv"
	"time"

	"sjsage522/pricewatch/internal/models"
)

// Store is the persistence collaborator used by every other package.
// Lookups of unknown ids return a NotFound error from pkg/errors.
type Store interface {
	ListCompetitors(ctx context.Context, activeOnly bool) ([]models.Competitor, error)
	GetCompetitor(ctx context.Context, id int64) (*models.Competitor, error)
	// FindCompetitorByURL returns nil when no competitor other than excludeID uses url.
	FindCompetitorByURL(ctx context.Context, url string, excludeID int64) (*models.Competitor, error)
	CreateCompetitor(ctx context.Context, c *models.Competitor) error
	UpdateCompetitor(ctx context.Context, c *models.Competitor) error
	// DeleteCompetitor also removes the competitor's observations, logs and alerts.
	DeleteCompetitor(ctx context.Context, id int64) error
	SetCompetitorStatus(ctx context.Context, id int64, lastSuccessAt *time.Time, lastError string) error

	InsertPriceObservation(ctx context.Context, o *models.PriceObservation) error
	// LatestPriceObservation returns nil when the pair has no observations.
	LatestPriceObservation(ctx context.Context, competitorID int64, product string) (*models.PriceObservation, error)
	// PriceObservationOffsetBy returns the observation at position offset when
	// ordered newest first, or nil when there are not enough observations.
	PriceObservationOffsetBy(ctx context.Context, competitorID int64, product string, offset int) (*models.PriceObservation, error)
	// PriceHistory lists observations since the given time, oldest first.
	// A zero competitorID selects every competitor.
	PriceHistory(ctx context.Context, competitorID int64, since time.Time) ([]models.PriceObservation, error)

	InsertScrapeLog(ctx context.Context, e *models.ScrapeLogEntry) error
	// ListScrapeLogs returns the newest entries first with competitor names joined.
	ListScrapeLogs(ctx context.Context, competitorID int64, limit int) ([]models.ScrapeLogEntry, error)
	// LastScrapeLog returns nil when the competitor has never been scraped.
	LastScrapeLog(ctx context.Context, competitorID int64) (*models.ScrapeLogEntry, error)
	RecentFailureCount(ctx context.Context, competitorID int64, since time.Time) (int, error)
	ScrapeStats(ctx context.Context, since time.Time) (models.ScrapeStats, error)

	InsertAlert(ctx context.Context, a *models.Alert) error
	ListUndismissedAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	DismissAlert(ctx context.Context, id int64) error

	ListOurPrices(ctx context.Context) ([]models.OurPrice, error)
	UpsertOurPrice(ctx context.Context, product string, price float64) error

	Close() error
}

// DefaultLogLimit is used when ListScrapeLogs is called without a positive limit.
const DefaultLogLimit = 50

func statsFrom(total, successful, failed, manual int) models.ScrapeStats {
	s := models.ScrapeStats{Total: total, Successful: successful, Failed: failed, Manual: manual}
	if total > 0 {
		s.SuccessRate = float64(successful) / float64(total) * 100
	}
	return s
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
