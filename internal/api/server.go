// Package api exposes the competitor, dashboard and scraping operations
// over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/pricewatch/internal/fleet"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// HistoryWindow bounds the price history endpoints.
const HistoryWindow = 30 * 24 * time.Hour

// Scraper runs extractions on request.
type Scraper interface {
	RunFleetScrape(ctx context.Context, mode string) (*models.FleetResult, error)
	RunSingleScrape(ctx context.Context, competitorID int64) (*models.Detail, error)
	RecordManualPrice(ctx context.Context, competitorID int64, price float64, product string) (*fleet.ManualResult, error)
}

// Handler serves every /api route.
type Handler struct {
	store   store.Store
	scraper Scraper
	now     func() time.Time
}

// NewHandler creates a Handler
func NewHandler(st store.Store, scraper Scraper) *Handler {
	return &Handler{store: st, scraper: scraper, now: time.Now}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		competitors := api.Group("/competitors")
		competitors.GET("", h.ListCompetitors)
		competitors.POST("", h.CreateCompetitor)
		competitors.GET("/:id", h.GetCompetitor)
		competitors.PUT("/:id", h.UpdateCompetitor)
		competitors.PATCH("/:id/toggle", h.ToggleCompetitor)
		competitors.DELETE("/:id", h.DeleteCompetitor)

		api.GET("/dashboard", h.Dashboard)
		api.GET("/price-history", h.AllPriceHistory)
		api.GET("/price-history/:competitorId", h.CompetitorPriceHistory)

		api.POST("/scrape", h.Scrape)
		api.POST("/scrape/:competitorId", h.ScrapeOne)
		api.POST("/manual-price", h.ManualPrice)
		api.GET("/scrape-logs", h.ScrapeLogs)

		api.PUT("/alerts/:id/dismiss", h.DismissAlert)

		api.GET("/our-prices", h.ListOurPrices)
		api.PUT("/our-prices/:product", h.UpdateOurPrice)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.ForAPI().Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.now().UTC()})
}

// fail maps typed errors to status codes. Internal errors are logged and
// replaced by a generic message.
func (h *Handler) fail(c *gin.Context, what string, err error) {
	switch {
	case errors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": errors.Message(err)})
	case errors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.Message(err)})
	default:
		logger.ForAPI().Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + what})
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
