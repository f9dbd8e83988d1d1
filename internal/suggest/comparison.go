// Package suggest compares our prices with the market and derives the
// advisories shown on the dashboard.
package suggest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"sjsage522/pricewatch/internal/models"
)

// Comparison statuses
const (
	StatusCompetitive = "competitive"
	StatusNeutral     = "neutral"
	StatusHigher      = "higher"
	StatusMuchHigher  = "much_higher"
)

// CompetitorPrice is the dashboard view of one active competitor.
type CompetitorPrice struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Product        string         `json:"-"`
	Price          *float64       `json:"price"`
	LastScraped    *time.Time     `json:"lastScraped"`
	Status         models.Outcome `json:"status"`
	RecentFailures int            `json:"recentFailures"`
}

// ComparisonRow compares our price for one product with its competitors.
type ComparisonRow struct {
	Product               string            `json:"product"`
	OurPrice              float64           `json:"ourPrice"`
	Competitors           []CompetitorPrice `json:"competitors"`
	AvgCompetitorPrice    float64           `json:"avgCompetitorPrice"`
	LowestCompetitorPrice float64           `json:"lowestCompetitorPrice"`
	// Difference is our price relative to the lowest competitor, in percent.
	Difference float64 `json:"difference"`
	Status     string  `json:"status"`
}

// Classify maps a difference in percent to a comparison status.
func Classify(difference float64) string {
	switch {
	case difference <= -5:
		return StatusCompetitive
	case difference <= 10:
		return StatusNeutral
	case difference <= 20:
		return StatusHigher
	default:
		return StatusMuchHigher
	}
}

// Products returns the sorted union of products we price and products
// tracked by the given competitors.
func Products(ourPrices map[string]float64, competitors []CompetitorPrice) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for p := range ourPrices {
		add(p)
	}
	for _, c := range competitors {
		add(c.Product)
	}
	sort.Strings(out)
	return out
}

// ComputeComparison builds one row per product. A product without our
// price or without any competitor price has a zero difference.
func ComputeComparison(products []string, ourPrices map[string]float64, competitors []CompetitorPrice) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(products))
	for _, product := range products {
		row := ComparisonRow{
			Product:     product,
			OurPrice:    ourPrices[product],
			Competitors: []CompetitorPrice{},
		}

		var sum float64
		var n int
		for _, c := range competitors {
			if c.Product != product {
				continue
			}
			row.Competitors = append(row.Competitors, c)
			if c.Price == nil || *c.Price <= 0 {
				continue
			}
			sum += *c.Price
			n++
			if row.LowestCompetitorPrice == 0 || *c.Price < row.LowestCompetitorPrice {
				row.LowestCompetitorPrice = *c.Price
			}
		}
		if n > 0 {
			row.AvgCompetitorPrice = sum / float64(n)
		}
		if row.OurPrice > 0 && row.LowestCompetitorPrice > 0 {
			row.Difference = (row.OurPrice - row.LowestCompetitorPrice) / row.LowestCompetitorPrice * 100
		}
		row.Status = Classify(row.Difference)
		rows = append(rows, row)
	}
	return rows
}

// Market positions
const (
	PositionAbove = "above"
	PositionBelow = "below"
	PositionEqual = "equal"
)

// MarketPosition summarizes our total price against the competitor averages.
type MarketPosition struct {
	Percentage  float64 `json:"percentage"`
	Position    string  `json:"position"`
	Description string  `json:"description"`
}

// ComputeMarketPosition compares the sum of our prices with the sum of the
// average competitor prices, over products that have both.
func ComputeMarketPosition(rows []ComparisonRow) MarketPosition {
	var totalOur, totalAvg float64
	for _, r := range rows {
		if r.OurPrice > 0 && r.AvgCompetitorPrice > 0 {
			totalOur += r.OurPrice
			totalAvg += r.AvgCompetitorPrice
		}
	}
	if totalAvg == 0 {
		return MarketPosition{Position: PositionEqual, Description: "No data available"}
	}

	diff := (totalOur - totalAvg) / totalAvg * 100
	pct := decimal.NewFromFloat(math.Abs(diff)).Round(1)
	mp := MarketPosition{Percentage: pct.InexactFloat64()}
	switch {
	case diff > 0:
		mp.Position = PositionAbove
		mp.Description = fmt.Sprintf("%s%% above market average", pct.StringFixed(1))
	case diff < 0:
		mp.Position = PositionBelow
		mp.Description = fmt.Sprintf("%s%% below market average", pct.StringFixed(1))
	default:
		mp.Position = PositionEqual
		mp.Description = "At market average"
	}
	return mp
}
