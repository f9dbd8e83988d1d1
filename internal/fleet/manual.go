package fleet

import (
	"context"
	"math"
	"strconv"
	"strings"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// ManualResult is returned after a manual price was recorded.
type ManualResult struct {
	Success      bool          `json:"success"`
	CompetitorID int64         `json:"competitorId"`
	Price        float64       `json:"price"`
	Product      string        `json:"productName"`
	Method       models.Method `json:"method"`
	Alert        *models.Alert `json:"alert,omitempty"`
}

// ParseManualPrice accepts a positive decimal number such as "9.99".
func ParseManualPrice(raw string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, errors.NewInvalidInput("price", "Invalid price value")
	}
	if p <= 0 {
		return 0, errors.NewInvalidInput("price", "Invalid price value")
	}
	return p, nil
}

// RecordManualPrice stores an operator supplied price for a competitor.
// product overrides the competitor's internal product when not empty.
func (s *Service) RecordManualPrice(ctx context.Context, competitorID int64, price float64, product string) (*ManualResult, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, errors.NewInvalidInput("price", "Invalid price value")
	}

	c, err := s.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return nil, err
	}

	product = strings.TrimSpace(product)
	if product == "" {
		product = c.InternalProduct
	}

	a, err := s.recorder.RecordPrice(ctx, *c, product, price)
	if err != nil {
		return nil, err
	}

	entry := models.ScrapeLogEntry{CompetitorID: c.ID, Outcome: models.OutcomeManual, Price: models.PriceOf(price)}
	if err := s.store.InsertScrapeLog(ctx, &entry); err != nil {
		return nil, errors.NewStorage("failed to write job log", err)
	}

	logger.ForFleet().Info().
		Str("competitor", c.Name).
		Str("product", product).
		Float64("price", price).
		Msg("Manual price recorded")

	return &ManualResult{
		Success:      true,
		CompetitorID: c.ID,
		Price:        price,
		Product:      product,
		Method:       models.MethodManual,
		Alert:        a,
	}, nil
}
