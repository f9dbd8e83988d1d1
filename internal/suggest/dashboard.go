package suggest

import (
	"context"
	"fmt"
	"time"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
)

// DashboardAlertLimit bounds the alerts shown on the dashboard.
const DashboardAlertLimit = 10

// StatsWindow is the trailing window for failure counts and scrape stats.
const StatsWindow = 24 * time.Hour

// AlertView is an alert with a human readable age.
type AlertView struct {
	models.Alert
	TimeAgo string `json:"timeAgo"`
}

// Dashboard is everything the overview page shows.
type Dashboard struct {
	Comparison     []ComparisonRow    `json:"comparison"`
	MarketPosition MarketPosition     `json:"marketPosition"`
	Alerts         []AlertView        `json:"alerts"`
	Suggestions    []Suggestion       `json:"suggestions"`
	ScrapeStats    models.ScrapeStats `json:"scrapeStats"`
}

// TimeAgo renders the age of t relative to now.
func TimeAgo(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%d minutes ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d hours ago", seconds/3600)
	case seconds < 604800:
		return fmt.Sprintf("%d days ago", seconds/86400)
	default:
		return t.Format("2006-01-02")
	}
}

// CompetitorPrices loads the dashboard view of every active competitor.
func CompetitorPrices(ctx context.Context, st store.Store, now time.Time) ([]CompetitorPrice, error) {
	competitors, err := st.ListCompetitors(ctx, true)
	if err != nil {
		return nil, err
	}

	since := now.Add(-StatsWindow)
	out := make([]CompetitorPrice, 0, len(competitors))
	for _, c := range competitors {
		cp := CompetitorPrice{ID: c.ID, Name: c.Name, Product: c.InternalProduct}

		latest, err := st.LatestPriceObservation(ctx, c.ID, c.InternalProduct)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			cp.Price = models.PriceOf(latest.Price)
			at := latest.ObservedAt
			cp.LastScraped = &at
		}

		last, err := st.LastScrapeLog(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			cp.Status = last.Outcome
		}

		if cp.RecentFailures, err = st.RecentFailureCount(ctx, c.ID, since); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// BuildDashboard assembles the overview as of now.
func BuildDashboard(ctx context.Context, st store.Store, now time.Time) (*Dashboard, error) {
	prices, err := st.ListOurPrices(ctx)
	if err != nil {
		return nil, err
	}
	ourPrices := make(map[string]float64, len(prices))
	for _, p := range prices {
		ourPrices[p.Product] = p.Price
	}

	competitors, err := CompetitorPrices(ctx, st, now)
	if err != nil {
		return nil, err
	}
	rows := ComputeComparison(Products(ourPrices, competitors), ourPrices, competitors)

	alerts, err := st.ListUndismissedAlerts(ctx, DashboardAlertLimit)
	if err != nil {
		return nil, err
	}
	views := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, AlertView{Alert: a, TimeAgo: TimeAgo(a.CreatedAt, now)})
	}

	stats, err := st.ScrapeStats(ctx, now.Add(-StatsWindow))
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Comparison:     rows,
		MarketPosition: ComputeMarketPosition(rows),
		Alerts:         views,
		Suggestions:    ComputeSuggestions(rows, alerts),
		ScrapeStats:    stats,
	}, nil
}
