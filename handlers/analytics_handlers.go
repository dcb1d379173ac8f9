// api/handlers/analytics_handlers.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"investgroup/api/analytics"
	"investgroup/api/logger"
	"investgroup/api/models"
	"investgroup/api/utils"
)

type AnalyticsOptions struct {
	// CountryHeader names the geolocation header set by the edge proxy.
	CountryHeader  string
	TrackTimeout   time.Duration
	SummaryTimeout time.Duration
}

type AnalyticsHandlers struct {
	tracker    *analytics.Tracker
	aggregator *analytics.Aggregator
	opts       AnalyticsOptions
}

func NewAnalyticsHandlers(tracker *analytics.Tracker, aggregator *analytics.Aggregator, opts AnalyticsOptions) *AnalyticsHandlers {
	if opts.CountryHeader == "" {
		opts.CountryHeader = "CF-IPCountry"
	}
	if opts.TrackTimeout <= 0 {
		opts.TrackTimeout = 2 * time.Second
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 10 * time.Second
	}
	return &AnalyticsHandlers{tracker: tracker, aggregator: aggregator, opts: opts}
}

// Track records one interaction event. Malformed payloads get a 400; once the
// payload is accepted the response is always 200 and success reports whether
// the event was stored.
func (h *AnalyticsHandlers) Track(c *gin.Context) {
	var payload models.TrackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	req, err := payload.TrackRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The beacon is fire-and-forget, so the write must outlive a client that
	// has already navigated away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.opts.TrackTimeout)
	defer cancel()

	ok := h.tracker.Track(ctx, req, h.requestMeta(c))
	c.JSON(http.StatusOK, models.TrackResponse{Success: ok})
}

func (h *AnalyticsHandlers) requestMeta(c *gin.Context) analytics.RequestMeta {
	return analytics.RequestMeta{
		UserAgent: c.GetHeader("User-Agent"),
		Country:   c.GetHeader(h.opts.CountryHeader),
		Referrer:  c.GetHeader("Referer"),
	}
}

// Summary returns the raw rollup for the last ?days= days.
func (h *AnalyticsHandlers) Summary(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.SummaryTimeout)
	defer cancel()

	summary := h.aggregator.Summarize(ctx, days)
	logDegraded(c, summary.Degraded)
	c.JSON(http.StatusOK, summary)
}

// Dashboard returns the summary with the presentation rollups the admin page
// renders.
func (h *AnalyticsHandlers) Dashboard(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.SummaryTimeout)
	defer cancel()

	dashboard := h.aggregator.Dashboard(ctx, days)
	logDegraded(c, dashboard.Summary.Degraded)
	c.JSON(http.StatusOK, dashboard)
}

func parseDays(c *gin.Context) (int, bool) {
	days, err := utils.ParseDays(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return days, true
}

func logDegraded(c *gin.Context, fields []string) {
	if len(fields) == 0 {
		return
	}
	logger.FromContext(c.Request.Context()).Warn().
		Str("fields", strings.Join(fields, ",")).
		Msg("analytics summary served with partial data")
}
