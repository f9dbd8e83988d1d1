package crawler

import (
	"time"

	"sjsage522/pricewatch/config"
)

// Config tunes a single competitor extraction.
type Config struct {
	NavigationTimeout    time.Duration
	SelectorTimeout      time.Duration
	SelectorRetryTimeout time.Duration
	Retry                RetryPolicy
	DwellMin             time.Duration
	DwellMax             time.Duration
	// ScrollStep is how far the page is scrolled before the second locator wait
	ScrollStep     int
	ScrollPauseMin time.Duration
	ScrollPauseMax time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		NavigationTimeout:    30 * time.Second,
		SelectorTimeout:      10 * time.Second,
		SelectorRetryTimeout: 5 * time.Second,
		Retry:                RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second},
		DwellMin:             1500 * time.Millisecond,
		DwellMax:             3000 * time.Millisecond,
		ScrollStep:           500,
		ScrollPauseMin:       time.Second,
		ScrollPauseMax:       2 * time.Second,
	}
}

// ConfigFrom derives the extraction timings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.NavigationTimeout = cfg.NavigationTimeout
	c.SelectorTimeout = cfg.SelectorTimeout
	c.SelectorRetryTimeout = cfg.SelectorRetryTimeout
	c.Retry = RetryPolicy{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	c.DwellMin = cfg.DwellMin
	c.DwellMax = cfg.DwellMax
	return c
}
