package suggest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"sjsage522/pricewatch/internal/models"
)

// Suggestion types
const (
	TypePriceMatch  = "price_match"
	TypeMaintain    = "maintain"
	TypeInvestigate = "investigate"
)

// Priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var priorityOrder = map[string]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Suggestion thresholds in percent, and the failed attempt count per 24h
// above which scraping is considered broken.
const (
	MatchAbove        = 10.0
	MaintainBelow     = -5.0
	FailureLimit      = 2
	PriceCutThreshold = -10.0
)

// Suggestion is one pricing advisory.
type Suggestion struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

func money(p float64) string {
	return "$" + strconv.FormatFloat(p, 'f', 2, 64)
}

func percent(p float64) string {
	return strconv.FormatFloat(math.Abs(p), 'f', 1, 64) + "%"
}

// ComputeSuggestions derives advisories from the comparison rows and the
// undismissed alerts. The result is ordered high, medium, low and keeps
// generation order within a priority. Rows without both our price and a
// competitor price only produce failure advisories.
func ComputeSuggestions(rows []ComparisonRow, alerts []models.Alert) []Suggestion {
	out := []Suggestion{}

	for _, row := range rows {
		priced := row.OurPrice > 0 && row.LowestCompetitorPrice > 0

		if priced && row.Difference > MatchAbove {
			if lowest := cheapest(row); lowest != nil {
				out = append(out, Suggestion{
					ID:       "match-" + row.Product,
					Type:     TypePriceMatch,
					Priority: PriorityHigh,
					Title:    fmt.Sprintf("Consider matching %s's price", lowest.Name),
					Description: fmt.Sprintf("%s is offering %s at %s, which is %s lower than your price of %s.",
						lowest.Name, row.Product, money(row.LowestCompetitorPrice), percent(row.Difference), money(row.OurPrice)),
					Action: "Match price of " + money(row.LowestCompetitorPrice),
				})
			}
		}

		if priced && row.Difference < MaintainBelow {
			out = append(out, Suggestion{
				ID:       "maintain-" + row.Product,
				Type:     TypeMaintain,
				Priority: PriorityLow,
				Title:    "Maintain pricing advantage",
				Description: fmt.Sprintf("Your %s price of %s is %s below the lowest competitor.",
					row.Product, money(row.OurPrice), percent(row.Difference)),
				Action: "Keep current pricing",
			})
		}

		var failing []string
		for _, c := range row.Competitors {
			if c.RecentFailures > FailureLimit {
				failing = append(failing, c.Name)
			}
		}
		if len(failing) > 0 {
			out = append(out, Suggestion{
				ID:       "scrape-issue-" + row.Product,
				Type:     TypeInvestigate,
				Priority: PriorityMedium,
				Title:    "Scraping issues detected",
				Description: fmt.Sprintf("%s have had multiple failed scrapes recently. Consider updating selectors or adding manual prices.",
					strings.Join(failing, ", ")),
				Action: "Review competitor configuration",
			})
		}
	}

	for _, a := range alerts {
		if a.PercentChange >= PriceCutThreshold {
			continue
		}
		out = append(out, Suggestion{
			ID:       "investigate-" + strconv.FormatInt(a.ID, 10),
			Type:     TypeInvestigate,
			Priority: PriorityMedium,
			Title:    fmt.Sprintf("Investigate %s's price cut", a.CompetitorName),
			Description: fmt.Sprintf("%s dropped %s by %s from %s to %s.",
				a.CompetitorName, a.Product, percent(a.PercentChange), money(a.OldPrice), money(a.NewPrice)),
			Action: "Review competitor strategy",
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priorityOrder[out[i].Priority] < priorityOrder[out[j].Priority]
	})
	return out
}

func cheapest(row ComparisonRow) *CompetitorPrice {
	for i, c := range row.Competitors {
		if c.Price != nil && *c.Price == row.LowestCompetitorPrice {
			return &row.Competitors[i]
		}
	}
	return nil
}
