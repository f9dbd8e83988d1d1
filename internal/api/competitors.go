package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// CompetitorLogLimit is how many Job Log entries the detail view includes.
const CompetitorLogLimit = 20

// CompetitorInput is the body of create and update requests.
type CompetitorInput struct {
	Name            string  `json:"name"`
	ProductURL      string  `json:"product_url"`
	CSSSelector     string  `json:"css_selector"`
	InternalProduct string  `json:"internal_product"`
	AlertThreshold  float64 `json:"alert_threshold"`
	IsActive        *bool   `json:"is_active"`
}

// CompetitorSummary is a competitor with its latest observation and outcome.
type CompetitorSummary struct {
	models.Competitor
	LatestPrice      *float64       `json:"latest_price"`
	LastScraped      *time.Time     `json:"last_scraped"`
	LastScrapeStatus models.Outcome `json:"last_scrape_status,omitempty"`
}

// CompetitorDetail adds recent logs and history to a summary.
type CompetitorDetail struct {
	CompetitorSummary
	ScrapeLogs   []models.ScrapeLogEntry   `json:"scrapeLogs"`
	PriceHistory []models.PriceObservation `json:"priceHistory"`
}

func (h *Handler) summarize(ctx context.Context, c models.Competitor) (CompetitorSummary, error) {
	s := CompetitorSummary{Competitor: c}
	latest, err := h.store.LatestPriceObservation(ctx, c.ID, c.InternalProduct)
	if err != nil {
		return s, err
	}
	if latest != nil {
		s.LatestPrice = models.PriceOf(latest.Price)
		at := latest.ObservedAt
		s.LastScraped = &at
	}
	last, err := h.store.LastScrapeLog(ctx, c.ID)
	if err != nil {
		return s, err
	}
	if last != nil {
		s.LastScrapeStatus = last.Outcome
	}
	return s, nil
}

// ListCompetitors lists active competitors, or all with includeInactive=true
func (h *Handler) ListCompetitors(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.store.ListCompetitors(ctx, c.Query("includeInactive") != "true")
	if err != nil {
		h.fail(c, "fetch competitors", err)
		return
	}

	out := make([]CompetitorSummary, 0, len(list))
	for _, comp := range list {
		s, err := h.summarize(ctx, comp)
		if err != nil {
			h.fail(c, "fetch competitors", err)
			return
		}
		out = append(out, s)
	}
	c.JSON(http.StatusOK, out)
}

// GetCompetitor returns one competitor with its recent logs and 30 day history, newest first
func (h *Handler) GetCompetitor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	comp, err := h.store.GetCompetitor(ctx, id)
	if err != nil {
		h.fail(c, "fetch competitor", err)
		return
	}
	s, err := h.summarize(ctx, *comp)
	if err != nil {
		h.fail(c, "fetch competitor", err)
		return
	}
	logs, err := h.store.ListScrapeLogs(ctx, id, CompetitorLogLimit)
	if err != nil {
		h.fail(c, "fetch competitor", err)
		return
	}
	history, err := h.store.PriceHistory(ctx, id, h.now().Add(-HistoryWindow))
	if err != nil {
		h.fail(c, "fetch competitor", err)
		return
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	c.JSON(http.StatusOK, CompetitorDetail{
		CompetitorSummary: s,
		ScrapeLogs:        nonNil(logs),
		PriceHistory:      nonNil(history),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *Handler) checkDuplicateURL(ctx context.Context, url string, excludeID int64) error {
	dup, err := h.store.FindCompetitorByURL(ctx, url, excludeID)
	if err != nil {
		return err
	}
	if dup != nil {
		return errors.NewInvalidInput("competitor", "A competitor with this URL already exists")
	}
	return nil
}

// CreateCompetitor adds an active competitor
func (h *Handler) CreateCompetitor(c *gin.Context) {
	var in CompetitorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ctx := c.Request.Context()

	comp := models.Competitor{
		Name:            in.Name,
		ProductURL:      in.ProductURL,
		CSSSelector:     in.CSSSelector,
		InternalProduct: in.InternalProduct,
		AlertThreshold:  in.AlertThreshold,
		IsActive:        true,
	}
	if err := comp.Validate(); err != nil {
		h.fail(c, "create competitor", err)
		return
	}
	if err := h.checkDuplicateURL(ctx, comp.ProductURL, 0); err != nil {
		h.fail(c, "create competitor", err)
		return
	}
	if err := h.store.CreateCompetitor(ctx, &comp); err != nil {
		h.fail(c, "create competitor", err)
		return
	}

	logger.ForAPI().Info().Str("competitor", comp.Name).Str("url", comp.ProductURL).Msg("Competitor added")
	c.JSON(http.StatusCreated, comp)
}

// UpdateCompetitor replaces the editable fields; is_active is kept when omitted
func (h *Handler) UpdateCompetitor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in CompetitorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ctx := c.Request.Context()

	existing, err := h.store.GetCompetitor(ctx, id)
	if err != nil {
		h.fail(c, "update competitor", err)
		return
	}

	comp := *existing
	comp.Name = in.Name
	comp.ProductURL = in.ProductURL
	comp.CSSSelector = in.CSSSelector
	comp.InternalProduct = in.InternalProduct
	comp.AlertThreshold = in.AlertThreshold
	if in.IsActive != nil {
		comp.IsActive = *in.IsActive
	}
	if err := comp.Validate(); err != nil {
		h.fail(c, "update competitor", err)
		return
	}
	if err := h.checkDuplicateURL(ctx, comp.ProductURL, id); err != nil {
		h.fail(c, "update competitor", err)
		return
	}
	if err := h.store.UpdateCompetitor(ctx, &comp); err != nil {
		h.fail(c, "update competitor", err)
		return
	}

	logger.ForAPI().Info().Str("competitor", comp.Name).Msg("Competitor updated")
	c.JSON(http.StatusOK, comp)
}

// ToggleCompetitor flips the active flag
func (h *Handler) ToggleCompetitor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	comp, err := h.store.GetCompetitor(ctx, id)
	if err != nil {
		h.fail(c, "toggle competitor", err)
		return
	}
	comp.IsActive = !comp.IsActive
	if err := h.store.UpdateCompetitor(ctx, comp); err != nil {
		h.fail(c, "toggle competitor", err)
		return
	}

	logger.ForAPI().Info().Str("competitor", comp.Name).Bool("active", comp.IsActive).Msg("Competitor toggled")
	c.JSON(http.StatusOK, comp)
}

// DeleteCompetitor removes a competitor with its history, logs and alerts
func (h *Handler) DeleteCompetitor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteCompetitor(c.Request.Context(), id); err != nil {
		h.fail(c, "delete competitor", err)
		return
	}
	logger.ForAPI().Info().Int64("competitor_id", id).Msg("Competitor deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Competitor deleted successfully"})
}
