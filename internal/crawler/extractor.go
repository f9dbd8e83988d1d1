package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sjsage522/pricewatch/helpers"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/price"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// JobLog receives exactly one entry per extraction.
type JobLog interface {
	InsertScrapeLog(ctx context.Context, e *models.ScrapeLogEntry) error
}

// Extractor reads the current price of one competitor from a Browser.
type Extractor struct {
	cfg      Config
	jobLog   JobLog
	cooldown *Cooldown
	sleep    SleepFunc
	jitter   JitterFunc
}

// Option customizes an Extractor
type Option func(*Extractor)

// WithCooldown skips competitors that recently blocked us
func WithCooldown(c *Cooldown) Option {
	return func(e *Extractor) { e.cooldown = c }
}

// WithSleep replaces the wall-clock sleep, for tests
func WithSleep(fn SleepFunc) Option {
	return func(e *Extractor) { e.sleep = fn }
}

// WithJitter replaces the random delay source, for tests
func WithJitter(fn JitterFunc) Option {
	return func(e *Extractor) { e.jitter = fn }
}

// NewExtractor creates an Extractor that logs outcomes to jobLog.
func NewExtractor(cfg Config, jobLog JobLog, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:    cfg,
		jobLog: jobLog,
		sleep:  helpers.Sleep,
		jitter: helpers.RandomDuration,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the bounded retry loop for c and returns its Detail. Every
// call writes exactly one Job Log entry describing the terminal outcome;
// failed intermediate attempts only reach the debug log.
func (e *Extractor) Extract(ctx context.Context, b Browser, c models.Competitor) models.Detail {
	log := logger.ForExtractor(c.Name)
	d := models.Detail{
		CompetitorID:   c.ID,
		CompetitorName: c.Name,
		Product:        c.InternalProduct,
		URL:            c.ProductURL,
		Method:         models.MethodAutomated,
	}

	if e.cooldown.Blocked(c.ID) {
		d.Error = errors.Message(errors.NewRateLimit(c.Name, e.cooldown.BlockTime))
		log.Info().Msg("Skipping competitor during cooldown")
		e.record(ctx, d)
		return d
	}

	var found float64
	attempts, err := e.cfg.Retry.Do(ctx, e.sleep, func(attempt int) error {
		log.Debug().Int("attempt", attempt).Str("url", c.ProductURL).Msg("Extracting price")
		p, err := e.attempt(ctx, b, c)
		if err != nil {
			log.Debug().Int("attempt", attempt).Err(err).Msg("Attempt failed")
			return err
		}
		found = p
		return nil
	})
	d.Attempts = attempts

	if err != nil {
		d.Error = errors.Message(err)
		if errors.IsRateLimit(err) {
			e.cooldown.Block(c.ID)
		}
		log.Warn().Int("attempts", attempts).Str("error", d.Error).Msg("Extraction failed")
	} else {
		d.Success = true
		d.Price = models.PriceOf(found)
		log.Info().Float64("price", found).Int("attempts", attempts).Msg("Extraction succeeded")
	}

	e.record(ctx, d)
	return d
}

func (e *Extractor) record(ctx context.Context, d models.Detail) {
	entry := models.ScrapeLogEntry{CompetitorID: d.CompetitorID, Outcome: models.OutcomeFailed, ErrorMessage: d.Error}
	if d.Success {
		entry.Outcome = models.OutcomeSuccess
		entry.Price = d.Price
	}
	// the audit entry survives a cancelled run
	if err := e.jobLog.InsertScrapeLog(context.WithoutCancel(ctx), &entry); err != nil {
		logger.ForExtractor(d.CompetitorName).Error().Err(err).Msg("Failed to write job log")
	}
}

func blockingStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// challengeMarkers appear in the titles of interstitial bot-check pages.
var challengeMarkers = []string{
	"just a moment",
	"attention required",
	"access denied",
	"verify you are human",
	"are you a robot",
	"captcha",
}

func challengeTitle(title string) bool {
	title = strings.ToLower(title)
	for _, m := range challengeMarkers {
		if strings.Contains(title, m) {
			return true
		}
	}
	return false
}

// challenged reports whether the loaded page is a bot-check interstitial.
func (e *Extractor) challenged(ctx context.Context, page Page) bool {
	tctx, cancel := context.WithTimeout(ctx, e.cfg.SelectorRetryTimeout)
	defer cancel()
	title, err := page.Text(tctx, "title")
	return err == nil && challengeTitle(title)
}

func (e *Extractor) attempt(ctx context.Context, b Browser, c models.Competitor) (float64, error) {
	page, err := b.NewPage(ctx, NewIdentity())
	if err != nil {
		return 0, errors.NewExtraction(c.Name, "failed to open page: "+err.Error(), err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	status, err := page.Navigate(navCtx, c.ProductURL)
	cancel()
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return 0, errors.NewNetwork(c.Name, "Navigation timeout exceeded", err)
		}
		return 0, errors.NewNetwork(c.Name, "navigation failed: "+err.Error(), err)
	}
	if status >= 400 {
		msg := fmt.Sprintf("HTTP %d - Page load failed", status)
		if blockingStatus(status) {
			return 0, errors.New(errors.ErrorTypeRateLimit, c.Name, msg, nil)
		}
		return 0, errors.NewNetwork(c.Name, msg, nil)
	}

	if err := e.sleep(ctx, e.jitter(e.cfg.DwellMin, e.cfg.DwellMax)); err != nil {
		return 0, errors.NewExtraction(c.Name, "interrupted", err)
	}

	if err := e.waitFor(ctx, page, c.CSSSelector, e.cfg.SelectorTimeout); err != nil {
		// lazily rendered prices often appear only after scrolling
		if err := page.ScrollBy(ctx, e.cfg.ScrollStep); err != nil {
			return 0, errors.NewExtraction(c.Name, "scroll failed: "+err.Error(), err)
		}
		if err := e.sleep(ctx, e.jitter(e.cfg.ScrollPauseMin, e.cfg.ScrollPauseMax)); err != nil {
			return 0, errors.NewExtraction(c.Name, "interrupted", err)
		}
		if err := e.waitFor(ctx, page, c.CSSSelector, e.cfg.SelectorRetryTimeout); err != nil {
			if e.challenged(ctx, page) {
				return 0, errors.New(errors.ErrorTypeRateLimit, c.Name, "Page blocked by bot challenge", err)
			}
			return 0, errors.NewExtraction(c.Name, fmt.Sprintf("Timeout waiting for selector %q", c.CSSSelector), err)
		}
	}

	text, err := page.Text(ctx, c.CSSSelector)
	if err != nil {
		return 0, errors.NewExtraction(c.Name, "failed to read price text: "+err.Error(), err)
	}
	text = strings.TrimSpace(text)

	return price.Parse(c.Name, text)
}

func (e *Extractor) waitFor(ctx context.Context, page Page, selector string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.WaitVisible(wctx, selector)
}
