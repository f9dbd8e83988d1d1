package store

import (
	"context"
	"time"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
)

type seedCompetitor struct {
	competitor models.Competitor
	// one price per weekly observation, oldest first
	weekly  []float64
	lastLog models.ScrapeLogEntry
}

func demoCompetitors() []seedCompetitor {
	ok := func(p float64) models.ScrapeLogEntry {
		return models.ScrapeLogEntry{Outcome: models.OutcomeSuccess, Price: models.PriceOf(p)}
	}
	failed := func(msg string) models.ScrapeLogEntry {
		return models.ScrapeLogEntry{Outcome: models.OutcomeFailed, ErrorMessage: msg}
	}
	return []seedCompetitor{
		{
			competitor: models.Competitor{Name: "Cost Plus Drugs", ProductURL: "https://costplusdrugs.com/medications/sildenafil-20mg-tablet/",
				CSSSelector: ".price", InternalProduct: "ED Medication", AlertThreshold: 10},
			weekly:  []float64{7.50, 7.50, 7.20, 7.20, 6.90},
			lastLog: ok(6.90),
		},
		{
			competitor: models.Competitor{Name: "Blink Health", ProductURL: "https://www.blinkhealth.com/sildenafil",
				CSSSelector: `[data-testid="price"]`, InternalProduct: "ED Medication", AlertThreshold: 10},
			weekly:  []float64{9.99, 9.99, 9.99, 9.99, 9.99},
			lastLog: ok(9.99),
		},
		{
			competitor: models.Competitor{Name: "HealthWarehouse", ProductURL: "https://www.healthwarehouse.com/sildenafil-20mg-tablets.html",
				CSSSelector: ".price-box .price", InternalProduct: "ED Medication", AlertThreshold: 10},
			weekly:  []float64{12.50, 12.50, 12.50, 12.50, 12.50},
			lastLog: failed("Selector not found"),
		},
		{
			competitor: models.Competitor{Name: "Honeybee Health", ProductURL: "https://www.honeybeehealth.com/sildenafil",
				CSSSelector: ".product-price", InternalProduct: "ED Medication", AlertThreshold: 10},
			weekly:  []float64{8.99, 8.99, 8.99, 8.99, 8.99},
			lastLog: ok(8.99),
		},
		{
			competitor: models.Competitor{Name: "RxSaver", ProductURL: "https://www.rxsaver.com/drugs/sildenafil",
				CSSSelector: ".drug-price-value", InternalProduct: "ED Medication", AlertThreshold: 15},
			weekly:  []float64{15.00, 14.50, 13.99, 12.99, 11.99},
			lastLog: failed("Navigation timeout"),
		},
	}
}

// DemoOurPrices are our own prices loaded with the demo data set.
var DemoOurPrices = map[string]float64{
	"ED Medication":       9.99,
	"Hair Loss Treatment": 12.00,
	"Skin Care":           15.00,
}

// Seed loads the demo data set into s when it holds no competitors.
// It reports whether anything was written.
func Seed(ctx context.Context, s Store, now time.Time) (bool, error) {
	existing, err := s.ListCompetitors(ctx, false)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	now = now.UTC()
	var firstID int64
	for _, sc := range demoCompetitors() {
		c := sc.competitor
		c.IsActive = true
		c.CreatedAt = now.AddDate(0, 0, -31)
		if err := s.CreateCompetitor(ctx, &c); err != nil {
			return false, err
		}
		if firstID == 0 {
			firstID = c.ID
		}

		// weekly observations 30, 23, 16, 9 and 2 days ago
		for i, p := range sc.weekly {
			o := models.PriceObservation{
				CompetitorID: c.ID,
				Product:      c.InternalProduct,
				Price:        p,
				ObservedAt:   now.AddDate(0, 0, -30+7*i),
			}
			if err := s.InsertPriceObservation(ctx, &o); err != nil {
				return false, err
			}
		}

		// three runs, eight hours apart
		for i := 0; i < 3; i++ {
			e := sc.lastLog
			e.CompetitorID = c.ID
			e.At = now.Add(-time.Duration(i*8) * time.Hour)
			if err := s.InsertScrapeLog(ctx, &e); err != nil {
				return false, err
			}
		}
	}

	for product, p := range DemoOurPrices {
		if err := s.UpsertOurPrice(ctx, product, p); err != nil {
			return false, err
		}
	}

	alert := models.Alert{
		CompetitorID:  firstID,
		Product:       "ED Medication",
		OldPrice:      7.20,
		NewPrice:      6.90,
		PercentChange: (6.90 - 7.20) / 7.20 * 100,
		CreatedAt:     now.Add(-4 * time.Hour),
	}
	if err := s.InsertAlert(ctx, &alert); err != nil {
		return false, err
	}

	logger.ForStore().Info().Int("competitors", len(demoCompetitors())).Msg("Seeded demo data")
	return true, nil
}
