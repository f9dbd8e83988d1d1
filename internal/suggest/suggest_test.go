package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
)

func competitor(id int64, name, product string, price float64, failures int) CompetitorPrice {
	c := CompetitorPrice{ID: id, Name: name, Product: product, RecentFailures: failures}
	if price > 0 {
		c.Price = models.PriceOf(price)
	}
	return c
}

func TestClassify(t *testing.T) {
	tests := []struct {
		diff float64
		want string
	}{
		{-20, StatusCompetitive},
		{-5, StatusCompetitive},
		{-4.99, StatusNeutral},
		{0, StatusNeutral},
		{10, StatusNeutral},
		{10.01, StatusHigher},
		{20, StatusHigher},
		{25, StatusMuchHigher},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.diff), "diff %v", tt.diff)
	}
}

func TestComputeComparison(t *testing.T) {
	competitors := []CompetitorPrice{
		competitor(1, "Alpha", "Pills", 8, 0),
		competitor(2, "Bravo", "Pills", 12, 0),
		competitor(3, "Charlie", "Pills", 0, 4),
		competitor(4, "Delta", "Cream", 20, 0),
	}
	ourPrices := map[string]float64{"Pills": 10, "Shampoo": 5}

	products := Products(ourPrices, competitors)
	assert.Equal(t, []string{"Cream", "Pills", "Shampoo"}, products)

	rows := ComputeComparison(products, ourPrices, competitors)
	require.Len(t, rows, 3)

	cream, pills, shampoo := rows[0], rows[1], rows[2]

	assert.Equal(t, 0.0, cream.OurPrice)
	assert.Equal(t, 20.0, cream.LowestCompetitorPrice)
	assert.Equal(t, 0.0, cream.Difference)
	assert.Equal(t, StatusNeutral, cream.Status)

	assert.Len(t, pills.Competitors, 3)
	assert.Equal(t, 10.0, pills.AvgCompetitorPrice)
	assert.Equal(t, 8.0, pills.LowestCompetitorPrice)
	assert.InDelta(t, 25, pills.Difference, 1e-9)
	assert.Equal(t, StatusMuchHigher, pills.Status)

	assert.Empty(t, shampoo.Competitors)
	assert.Equal(t, 0.0, shampoo.AvgCompetitorPrice)
}

func TestComputeMarketPosition(t *testing.T) {
	assert.Equal(t, PositionEqual, ComputeMarketPosition(nil).Position)
	assert.Equal(t, "No data available", ComputeMarketPosition(nil).Description)

	rows := []ComparisonRow{
		{Product: "A", OurPrice: 11, AvgCompetitorPrice: 10},
		{Product: "B", OurPrice: 12, AvgCompetitorPrice: 10},
		{Product: "C", OurPrice: 50},
	}
	mp := ComputeMarketPosition(rows)
	assert.Equal(t, PositionAbove, mp.Position)
	assert.Equal(t, 15.0, mp.Percentage)
	assert.Equal(t, "15.0% above market average", mp.Description)

	mp = ComputeMarketPosition([]ComparisonRow{{OurPrice: 9, AvgCompetitorPrice: 12}})
	assert.Equal(t, PositionBelow, mp.Position)
	assert.Equal(t, "25.0% below market average", mp.Description)

	mp = ComputeMarketPosition([]ComparisonRow{{OurPrice: 10, AvgCompetitorPrice: 10}})
	assert.Equal(t, PositionEqual, mp.Position)
	assert.Equal(t, "At market average", mp.Description)
}

func TestComputeSuggestions(t *testing.T) {
	t.Run("match the cheapest competitor", func(t *testing.T) {
		rows := ComputeComparison([]string{"Pills"}, map[string]float64{"Pills": 10},
			[]CompetitorPrice{competitor(1, "Alpha", "Pills", 8, 0), competitor(2, "Bravo", "Pills", 9, 0)})

		got := ComputeSuggestions(rows, nil)
		require.Len(t, got, 1)
		assert.Equal(t, TypePriceMatch, got[0].Type)
		assert.Equal(t, PriorityHigh, got[0].Priority)
		assert.Equal(t, "Consider matching Alpha's price", got[0].Title)
		assert.Equal(t, "Alpha is offering Pills at $8.00, which is 25.0% lower than your price of $10.00.", got[0].Description)
		assert.Equal(t, "Match price of $8.00", got[0].Action)
	})

	t.Run("maintain a lead", func(t *testing.T) {
		rows := ComputeComparison([]string{"Pills"}, map[string]float64{"Pills": 10},
			[]CompetitorPrice{competitor(1, "Alpha", "Pills", 11, 0)})

		got := ComputeSuggestions(rows, nil)
		require.Len(t, got, 1)
		assert.Equal(t, TypeMaintain, got[0].Type)
		assert.Equal(t, PriorityLow, got[0].Priority)
		assert.Contains(t, got[0].Description, "9.1% below")
	})

	t.Run("neutral band is quiet", func(t *testing.T) {
		rows := ComputeComparison([]string{"Pills"}, map[string]float64{"Pills": 10},
			[]CompetitorPrice{competitor(1, "Alpha", "Pills", 9.5, 0)})
		assert.Empty(t, ComputeSuggestions(rows, nil))
	})

	t.Run("failing competitors", func(t *testing.T) {
		// no prices at all; the scraping advisory is still raised
		rows := ComputeComparison([]string{"Pills"}, nil, []CompetitorPrice{
			competitor(1, "Alpha", "Pills", 0, 3),
			competitor(2, "Bravo", "Pills", 0, 2),
			competitor(3, "Charlie", "Pills", 0, 5),
		})

		got := ComputeSuggestions(rows, nil)
		require.Len(t, got, 1)
		assert.Equal(t, TypeInvestigate, got[0].Type)
		assert.Equal(t, PriorityMedium, got[0].Priority)
		assert.Equal(t, "scrape-issue-Pills", got[0].ID)
		assert.Contains(t, got[0].Description, "Alpha, Charlie have")
	})

	t.Run("price cut alerts", func(t *testing.T) {
		alerts := []models.Alert{
			{ID: 7, CompetitorName: "Alpha", Product: "Pills", OldPrice: 10, NewPrice: 8, PercentChange: -20},
			{ID: 8, CompetitorName: "Bravo", Product: "Pills", OldPrice: 10, NewPrice: 9, PercentChange: -10},
			{ID: 9, CompetitorName: "Charlie", Product: "Pills", OldPrice: 10, NewPrice: 12, PercentChange: 20},
		}
		got := ComputeSuggestions(nil, alerts)
		require.Len(t, got, 1)
		assert.Equal(t, "investigate-7", got[0].ID)
		assert.Equal(t, "Alpha dropped Pills by 20.0% from $10.00 to $8.00.", got[0].Description)
	})

	t.Run("ordered by priority, stable within", func(t *testing.T) {
		rows := ComputeComparison([]string{"A", "B", "C"},
			map[string]float64{"A": 10, "B": 10, "C": 10},
			[]CompetitorPrice{
				competitor(1, "Alpha", "A", 12, 0),
				competitor(2, "Bravo", "B", 5, 3),
				competitor(3, "Charlie", "C", 8, 0),
			})
		alerts := []models.Alert{{ID: 1, CompetitorName: "Bravo", Product: "B", OldPrice: 10, NewPrice: 5, PercentChange: -50}}

		got := ComputeSuggestions(rows, alerts)
		var ids []string
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		assert.Equal(t, []string{"match-B", "match-C", "scrape-issue-B", "investigate-1", "maintain-A"}, ids)
	})
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", TimeAgo(now.Add(-30*time.Second), now))
	assert.Equal(t, "5 minutes ago", TimeAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "4 hours ago", TimeAgo(now.Add(-4*time.Hour), now))
	assert.Equal(t, "3 days ago", TimeAgo(now.Add(-72*time.Hour), now))
	assert.Equal(t, "2024-05-01", TimeAgo(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), now))
}

func TestBuildDashboard(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	now := time.Now().UTC()

	seeded, err := store.Seed(ctx, st, now)
	require.NoError(t, err)
	require.True(t, seeded)

	d, err := BuildDashboard(ctx, st, now)
	require.NoError(t, err)

	require.Len(t, d.Comparison, 3)
	ed := d.Comparison[0]
	assert.Equal(t, "ED Medication", ed.Product)
	assert.Equal(t, 9.99, ed.OurPrice)
	assert.Len(t, ed.Competitors, 5)
	assert.Equal(t, 6.90, ed.LowestCompetitorPrice)
	assert.Equal(t, StatusMuchHigher, ed.Status)

	assert.Equal(t, PositionBelow, d.MarketPosition.Position)

	require.Len(t, d.Alerts, 1)
	assert.Equal(t, "4 hours ago", d.Alerts[0].TimeAgo)

	require.Len(t, d.Suggestions, 2)
	assert.Equal(t, "Consider matching Cost Plus Drugs's price", d.Suggestions[0].Title)
	assert.Equal(t, "Scraping issues detected", d.Suggestions[1].Title)
	assert.Contains(t, d.Suggestions[1].Description, "HealthWarehouse, RxSaver")

	assert.Equal(t, 15, d.ScrapeStats.Total)
	assert.Equal(t, 9, d.ScrapeStats.Successful)
	assert.Equal(t, 6, d.ScrapeStats.Failed)
	assert.InDelta(t, 60, d.ScrapeStats.SuccessRate, 1e-9)
}
