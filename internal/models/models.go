// Package models holds the entities shared by the scraping, alerting and
// reporting packages.
package models

import (
	"net/url"
	"strings"
	"time"

	"sjsage522/pricewatch/pkg/errors"
)

// DefaultAlertThreshold is applied when a competitor is created without one.
const DefaultAlertThreshold = 10.0

// Competitor is one tracked (retailer, product page) pair.
type Competitor struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	ProductURL      string     `json:"product_url"`
	CSSSelector     string     `json:"css_selector"`
	InternalProduct string     `json:"internal_product"`
	AlertThreshold  float64    `json:"alert_threshold"`
	IsActive        bool       `json:"is_active"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Validate checks the fields a caller must supply. A zero threshold is
// replaced by DefaultAlertThreshold.
func (c *Competitor) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.InternalProduct = strings.TrimSpace(c.InternalProduct)
	c.CSSSelector = strings.TrimSpace(c.CSSSelector)
	c.ProductURL = strings.TrimSpace(c.ProductURL)

	if c.Name == "" || c.ProductURL == "" || c.CSSSelector == "" || c.InternalProduct == "" {
		return errors.NewInvalidInput("competitor", "name, product_url, css_selector and internal_product are required")
	}
	u, err := url.Parse(c.ProductURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewInvalidInput("competitor", "invalid URL format")
	}
	if c.AlertThreshold == 0 {
		c.AlertThreshold = DefaultAlertThreshold
	}
	if c.AlertThreshold < 0 || c.AlertThreshold > 100 {
		return errors.NewInvalidInput("competitor", "alert_threshold must be between 0 and 100")
	}
	return nil
}

// PriceObservation is one recorded price for a competitor and product.
type PriceObservation struct {
	ID           int64     `json:"id"`
	CompetitorID int64     `json:"competitor_id"`
	Product      string    `json:"product_name"`
	Price        float64   `json:"price"`
	ObservedAt   time.Time `json:"scraped_at"`
}

// Outcome is the terminal status of a scrape or manual entry.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeManual  Outcome = "manual"
)

// ScrapeLogEntry is one Job Log record.
type ScrapeLogEntry struct {
	ID             int64     `json:"id"`
	CompetitorID   int64     `json:"competitor_id"`
	CompetitorName string    `json:"competitor_name,omitempty"`
	Outcome        Outcome   `json:"status"`
	Price          *float64  `json:"price"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	At             time.Time `json:"scraped_at"`
}

// Alert records a price move that crossed the competitor threshold.
type Alert struct {
	ID             int64     `json:"id"`
	CompetitorID   int64     `json:"competitor_id"`
	CompetitorName string    `json:"competitor_name,omitempty"`
	Product        string    `json:"product_name"`
	OldPrice       float64   `json:"old_price"`
	NewPrice       float64   `json:"new_price"`
	PercentChange  float64   `json:"percent_change"`
	CreatedAt      time.Time `json:"created_at"`
	Dismissed      bool      `json:"dismissed"`
}

// OurPrice is our own selling price for a product.
type OurPrice struct {
	Product   string    `json:"product_name"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Method says how a Detail was produced.
type Method string

const (
	MethodAutomated Method = "automated"
	MethodSynthetic Method = "synthetic"
	MethodManual    Method = "manual"
)

// Detail is the per-competitor result inside a fleet run.
type Detail struct {
	CompetitorID   int64    `json:"competitorId"`
	CompetitorName string   `json:"competitorName"`
	Product        string   `json:"productName"`
	URL            string   `json:"url"`
	Success        bool     `json:"success"`
	Price          *float64 `json:"price"`
	Error          string   `json:"error,omitempty"`
	Method         Method   `json:"method"`
	Attempts       int      `json:"attempts"`
}

// FleetResult summarizes one fleet run.
type FleetResult struct {
	RunID        string    `json:"runId"`
	Mode         string    `json:"mode"`
	Success      int       `json:"success"`
	Failed       int       `json:"failed"`
	Total        int       `json:"total"`
	Details      []Detail  `json:"details"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	FallbackUsed bool      `json:"fallbackUsed,omitempty"`
}

// Add appends d and updates the counters.
func (r *FleetResult) Add(d Detail) {
	r.Details = append(r.Details, d)
	r.Total++
	if d.Success {
		r.Success++
	} else {
		r.Failed++
	}
}

// ScrapeStats aggregates Job Log entries over a window.
type ScrapeStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	Manual      int     `json:"manual"`
	SuccessRate float64 `json:"successRate"`
}

// PriceOf returns a pointer to p, for optional price fields.
func PriceOf(p float64) *float64 {
	return &p
}
