package api

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/pricewatch/internal/fleet"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/internal/suggest"
	"sjsage522/pricewatch/pkg/errors"
)

// Dashboard returns comparison, market position, alerts, suggestions and stats
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := suggest.BuildDashboard(c.Request.Context(), h.store, h.now())
	if err != nil {
		h.fail(c, "fetch dashboard data", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CompetitorPriceHistory returns the last 30 days for one competitor, oldest first
func (h *Handler) CompetitorPriceHistory(c *gin.Context) {
	id, ok := paramID(c, "competitorId")
	if !ok {
		return
	}
	history, err := h.store.PriceHistory(c.Request.Context(), id, h.now().Add(-HistoryWindow))
	if err != nil {
		h.fail(c, "fetch price history", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(history))
}

// NamedObservation is an observation with its competitor's name.
type NamedObservation struct {
	models.PriceObservation
	CompetitorName string `json:"competitor_name"`
}

// AllPriceHistory returns the last 30 days for every competitor and our prices
func (h *Handler) AllPriceHistory(c *gin.Context) {
	ctx := c.Request.Context()

	competitors, err := h.store.ListCompetitors(ctx, false)
	if err != nil {
		h.fail(c, "fetch price history", err)
		return
	}
	names := make(map[int64]string, len(competitors))
	for _, comp := range competitors {
		names[comp.ID] = comp.Name
	}

	history, err := h.store.PriceHistory(ctx, 0, h.now().Add(-HistoryWindow))
	if err != nil {
		h.fail(c, "fetch price history", err)
		return
	}
	out := make([]NamedObservation, 0, len(history))
	for _, o := range history {
		out = append(out, NamedObservation{PriceObservation: o, CompetitorName: names[o.CompetitorID]})
	}

	ourPrices, err := h.store.ListOurPrices(ctx)
	if err != nil {
		h.fail(c, "fetch price history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": out, "ourPrices": nonNil(ourPrices)})
}

// ScrapeRequest is the body of POST /api/scrape.
type ScrapeRequest struct {
	Mode string `json:"mode"`
}

// Scrape runs a fleet scrape; mode defaults to real
func (h *Handler) Scrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Mode == "" {
		req.Mode = fleet.ModeReal
	}

	result, err := h.scraper.RunFleetScrape(c.Request.Context(), req.Mode)
	if err != nil {
		h.fail(c, "scrape", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScrapeOne scrapes a single competitor
func (h *Handler) ScrapeOne(c *gin.Context) {
	id, ok := paramID(c, "competitorId")
	if !ok {
		return
	}
	d, err := h.scraper.RunSingleScrape(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "scrape", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ManualPriceRequest is the body of POST /api/manual-price. Price may be a
// number or a numeric string.
type ManualPriceRequest struct {
	CompetitorID int64  `json:"competitorId"`
	Price        any    `json:"price"`
	ProductName  string `json:"productName"`
}

func manualPrice(v any) (float64, error) {
	switch p := v.(type) {
	case float64:
		return fleet.ParseManualPrice(strconv.FormatFloat(p, 'f', -1, 64))
	case string:
		return fleet.ParseManualPrice(p)
	default:
		return 0, errors.NewInvalidInput("price", "Invalid price value")
	}
}

// ManualPrice records an operator supplied price
func (h *Handler) ManualPrice(c *gin.Context) {
	var req ManualPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.CompetitorID == 0 || req.Price == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "competitorId and price are required"})
		return
	}
	price, err := manualPrice(req.Price)
	if err != nil {
		h.fail(c, "add manual price", err)
		return
	}

	res, err := h.scraper.RecordManualPrice(c.Request.Context(), req.CompetitorID, price, req.ProductName)
	if err != nil {
		h.fail(c, "add manual price", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScrapeLogs lists Job Log entries, newest first
func (h *Handler) ScrapeLogs(c *gin.Context) {
	var competitorID int64
	if raw := c.Query("competitorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid competitorId"})
			return
		}
		competitorID = id
	}
	limit := store.DefaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	logs, err := h.store.ListScrapeLogs(c.Request.Context(), competitorID, limit)
	if err != nil {
		h.fail(c, "fetch scrape logs", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(logs))
}

// DismissAlert hides an alert from the dashboard
func (h *Handler) DismissAlert(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DismissAlert(c.Request.Context(), id); err != nil {
		h.fail(c, "dismiss alert", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert dismissed"})
}

// ListOurPrices returns our own prices
func (h *Handler) ListOurPrices(c *gin.Context) {
	prices, err := h.store.ListOurPrices(c.Request.Context())
	if err != nil {
		h.fail(c, "fetch prices", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(prices))
}

// OurPriceRequest is the body of PUT /api/our-prices/:product.
type OurPriceRequest struct {
	Price float64 `json:"price"`
}

// UpdateOurPrice sets our price for a product, creating it if needed
func (h *Handler) UpdateOurPrice(c *gin.Context) {
	var req OurPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	product := c.Param("product")
	if product == "" || req.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product and a positive price are required"})
		return
	}
	if err := h.store.UpsertOurPrice(c.Request.Context(), product, req.Price); err != nil {
		h.fail(c, "update price", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Price updated", "updated_at": h.now().UTC().Format(time.RFC3339)})
}
