package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/pkg/errors"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, mk(t))
		})
	}
}

func newCompetitor(t *testing.T, s Store, name, url string) models.Competitor {
	c := models.Competitor{
		Name:            name,
		ProductURL:      url,
		CSSSelector:     ".price",
		InternalProduct: "ED Medication",
		AlertThreshold:  10,
		IsActive:        true,
	}
	require.NoError(t, s.CreateCompetitor(context.Background(), &c))
	require.NotZero(t, c.ID)
	return c
}

func TestCompetitorCRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := newCompetitor(t, s, "Blink Health", "https://www.blinkhealth.com/sildenafil")
		b := newCompetitor(t, s, "Acme", "https://acme.example/sildenafil")

		got, err := s.GetCompetitor(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Blink Health", got.Name)
		assert.True(t, got.IsActive)
		assert.Nil(t, got.LastSuccessAt)

		list, err := s.ListCompetitors(ctx, false)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Acme", list[0].Name)

		b.IsActive = false
		b.AlertThreshold = 25
		require.NoError(t, s.UpdateCompetitor(ctx, &b))
		active, err := s.ListCompetitors(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, a.ID, active[0].ID)

		dup, err := s.FindCompetitorByURL(ctx, a.ProductURL, 0)
		require.NoError(t, err)
		require.NotNil(t, dup)
		assert.Equal(t, a.ID, dup.ID)
		dup, err = s.FindCompetitorByURL(ctx, a.ProductURL, a.ID)
		require.NoError(t, err)
		assert.Nil(t, dup)

		_, err = s.GetCompetitor(ctx, 9999)
		assert.True(t, errors.IsNotFound(err))
		missing := models.Competitor{ID: 9999, Name: "x"}
		assert.True(t, errors.IsNotFound(s.UpdateCompetitor(ctx, &missing)))
		assert.True(t, errors.IsNotFound(s.DeleteCompetitor(ctx, 9999)))
	})
}

func TestSetCompetitorStatus(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCompetitor(t, s, "Cost Plus Drugs", "https://costplusdrugs.com/x")

		require.NoError(t, s.SetCompetitorStatus(ctx, c.ID, nil, "HTTP 503 - Page load failed"))
		got, err := s.GetCompetitor(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "HTTP 503 - Page load failed", got.LastError)
		assert.Nil(t, got.LastSuccessAt)

		require.NoError(t, s.SetCompetitorStatus(ctx, c.ID, &base, ""))
		got, err = s.GetCompetitor(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, got.LastError)
		require.NotNil(t, got.LastSuccessAt)
		assert.True(t, base.Equal(*got.LastSuccessAt))

		assert.True(t, errors.IsNotFound(s.SetCompetitorStatus(ctx, 404, nil, "")))
	})
}

func TestObservationOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCompetitor(t, s, "RxSaver", "https://www.rxsaver.com/drugs/sildenafil")

		latest, err := s.LatestPriceObservation(ctx, c.ID, "ED Medication")
		require.NoError(t, err)
		assert.Nil(t, latest)

		for i, p := range []float64{15.00, 14.50, 13.99} {
			o := models.PriceObservation{CompetitorID: c.ID, Product: "ED Medication", Price: p, ObservedAt: base.Add(time.Duration(i) * time.Hour)}
			require.NoError(t, s.InsertPriceObservation(ctx, &o))
		}
		// a different product never shifts the offsets
		other := models.PriceObservation{CompetitorID: c.ID, Product: "Skin Care", Price: 40, ObservedAt: base.Add(5 * time.Hour)}
		require.NoError(t, s.InsertPriceObservation(ctx, &other))

		latest, err = s.LatestPriceObservation(ctx, c.ID, "ED Medication")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 13.99, latest.Price)

		prev, err := s.PriceObservationOffsetBy(ctx, c.ID, "ED Medication", 1)
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, 14.50, prev.Price)

		none, err := s.PriceObservationOffsetBy(ctx, c.ID, "ED Medication", 3)
		require.NoError(t, err)
		assert.Nil(t, none)

		history, err := s.PriceHistory(ctx, c.ID, base.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, 14.50, history[0].Price)
		assert.Equal(t, 40.0, history[2].Price)

		all, err := s.PriceHistory(ctx, 0, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}

func TestObservationTieBreaksOnInsertOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCompetitor(t, s, "Honeybee Health", "https://www.honeybeehealth.com/sildenafil")

		for _, p := range []float64{8.99, 9.49} {
			o := models.PriceObservation{CompetitorID: c.ID, Product: "ED Medication", Price: p, ObservedAt: base}
			require.NoError(t, s.InsertPriceObservation(ctx, &o))
		}
		latest, err := s.LatestPriceObservation(ctx, c.ID, "ED Medication")
		require.NoError(t, err)
		assert.Equal(t, 9.49, latest.Price)
	})
}

func TestScrapeLogs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := newCompetitor(t, s, "Cost Plus Drugs", "https://costplusdrugs.com/x")
		b := newCompetitor(t, s, "Blink Health", "https://www.blinkhealth.com/x")

		last, err := s.LastScrapeLog(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, last)

		entries := []models.ScrapeLogEntry{
			{CompetitorID: a.ID, Outcome: models.OutcomeSuccess, Price: models.PriceOf(6.9), At: base.Add(-30 * time.Hour)},
			{CompetitorID: a.ID, Outcome: models.OutcomeFailed, ErrorMessage: "Timeout waiting for selector", At: base.Add(-2 * time.Hour)},
			{CompetitorID: a.ID, Outcome: models.OutcomeFailed, ErrorMessage: "HTTP 403 - Page load failed", At: base.Add(-time.Hour)},
			{CompetitorID: b.ID, Outcome: models.OutcomeManual, Price: models.PriceOf(9.99), At: base.Add(-30 * time.Minute)},
			{CompetitorID: b.ID, Outcome: models.OutcomeSuccess, Price: models.PriceOf(9.99), At: base},
		}
		for i := range entries {
			require.NoError(t, s.InsertScrapeLog(ctx, &entries[i]))
		}

		logs, err := s.ListScrapeLogs(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 5)
		assert.Equal(t, b.ID, logs[0].CompetitorID)
		assert.Equal(t, "Blink Health", logs[0].CompetitorName)
		require.NotNil(t, logs[0].Price)
		assert.Equal(t, 9.99, *logs[0].Price)

		logs, err = s.ListScrapeLogs(ctx, a.ID, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "HTTP 403 - Page load failed", logs[0].ErrorMessage)
		assert.Nil(t, logs[0].Price)
		assert.Equal(t, "Cost Plus Drugs", logs[0].CompetitorName)

		last, err = s.LastScrapeLog(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, models.OutcomeFailed, last.Outcome)

		n, err := s.RecentFailureCount(ctx, a.ID, base.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		stats, err := s.ScrapeStats(ctx, base.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 1, stats.Successful)
		assert.Equal(t, 2, stats.Failed)
		assert.Equal(t, 1, stats.Manual)
		assert.InDelta(t, 25.0, stats.SuccessRate, 1e-9)

		empty, err := s.ScrapeStats(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, empty.Total)
		assert.Equal(t, 0.0, empty.SuccessRate)
	})
}

func TestAlerts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCompetitor(t, s, "Cost Plus Drugs", "https://costplusdrugs.com/x")

		older := models.Alert{CompetitorID: c.ID, Product: "ED Medication", OldPrice: 10, NewPrice: 8, PercentChange: -20, CreatedAt: base}
		newer := models.Alert{CompetitorID: c.ID, Product: "ED Medication", OldPrice: 8, NewPrice: 9, PercentChange: 12.5, CreatedAt: base.Add(time.Hour)}
		require.NoError(t, s.InsertAlert(ctx, &older))
		require.NoError(t, s.InsertAlert(ctx, &newer))

		alerts, err := s.ListUndismissedAlerts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, newer.ID, alerts[0].ID)
		assert.Equal(t, "Cost Plus Drugs", alerts[0].CompetitorName)

		require.NoError(t, s.DismissAlert(ctx, newer.ID))
		alerts, err = s.ListUndismissedAlerts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, older.ID, alerts[0].ID)

		assert.True(t, errors.IsNotFound(s.DismissAlert(ctx, 777)))
	})
}

func TestDeleteCompetitorCascades(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCompetitor(t, s, "Cost Plus Drugs", "https://costplusdrugs.com/x")
		keep := newCompetitor(t, s, "Blink Health", "https://www.blinkhealth.com/x")

		for _, id := range []int64{c.ID, keep.ID} {
			o := models.PriceObservation{CompetitorID: id, Product: "ED Medication", Price: 7, ObservedAt: base}
			require.NoError(t, s.InsertPriceObservation(ctx, &o))
			e := models.ScrapeLogEntry{CompetitorID: id, Outcome: models.OutcomeSuccess, Price: models.PriceOf(7), At: base}
			require.NoError(t, s.InsertScrapeLog(ctx, &e))
			a := models.Alert{CompetitorID: id, Product: "ED Medication", OldPrice: 8, NewPrice: 7, PercentChange: -12.5, CreatedAt: base}
			require.NoError(t, s.InsertAlert(ctx, &a))
		}

		require.NoError(t, s.DeleteCompetitor(ctx, c.ID))

		history, err := s.PriceHistory(ctx, 0, base.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, keep.ID, history[0].CompetitorID)

		logs, err := s.ListScrapeLogs(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)

		alerts, err := s.ListUndismissedAlerts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, keep.ID, alerts[0].CompetitorID)
	})
}

func TestOurPrices(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.UpsertOurPrice(ctx, "Skin Care", 15))
		require.NoError(t, s.UpsertOurPrice(ctx, "ED Medication", 9.99))
		require.NoError(t, s.UpsertOurPrice(ctx, "Skin Care", 14.25))

		prices, err := s.ListOurPrices(ctx)
		require.NoError(t, err)
		require.Len(t, prices, 2)
		assert.Equal(t, "ED Medication", prices[0].Product)
		assert.Equal(t, "Skin Care", prices[1].Product)
		assert.Equal(t, 14.25, prices[1].Price)
	})
}

func TestSeed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seeded, err := Seed(ctx, s, base)
		require.NoError(t, err)
		assert.True(t, seeded)

		competitors, err := s.ListCompetitors(ctx, true)
		require.NoError(t, err)
		assert.Len(t, competitors, 5)

		history, err := s.PriceHistory(ctx, 0, base.AddDate(0, 0, -31))
		require.NoError(t, err)
		assert.Len(t, history, 25)

		prices, err := s.ListOurPrices(ctx)
		require.NoError(t, err)
		assert.Len(t, prices, 3)

		alerts, err := s.ListUndismissedAlerts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "Cost Plus Drugs", alerts[0].CompetitorName)

		again, err := Seed(ctx, s, base)
		require.NoError(t, err)
		assert.False(t, again)
	})
}

func TestRebindDollar(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", rebindDollar("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1", rebindDollar("SELECT 1"))
}
