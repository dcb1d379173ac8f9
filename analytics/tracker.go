// Package analytics records site interaction events and rolls them up for the
// admin dashboard.
//
// Tracking is best effort: a failed write is logged and reported as
// success=false, never as an error the page has to handle. Summaries degrade
// per field, so one failing query leaves only its own field empty.
package analytics

import (
	"context"
	"strings"
	"time"

	"investgroup/api/logger"
	"investgroup/api/metrics"
	"investgroup/api/models"
)

// EventWriter appends events. The Tracker only needs this half of a store.
type EventWriter interface {
	InsertEvent(ctx context.Context, e *models.Event) error
}

// EventReader runs the aggregate queries behind a summary.
type EventReader interface {
	CountEvents(ctx context.Context, f models.CountFilter) (uint64, error)
	GroupCounts(ctx context.Context, q models.GroupQuery) ([]models.GroupCount, error)
}

// EventStore is the append-and-aggregate storage the analytics core runs on.
type EventStore interface {
	EventWriter
	EventReader
}

// RequestMeta is the request context recorded alongside each event. The HTTP
// layer fills it from the User-Agent, geolocation and Referer headers.
type RequestMeta struct {
	UserAgent string
	Country   string
	Referrer  string
}

type Tracker struct {
	store          EventWriter
	ignorePrefixes []string
	now            func() time.Time
}

type TrackerOption func(*Tracker)

// WithIgnoredPaths stops page views under the given path prefixes from
// being recorded.
func WithIgnoredPaths(prefixes ...string) TrackerOption {
	return func(t *Tracker) { t.ignorePrefixes = prefixes }
}

func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(store EventWriter, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track appends one event. It reports whether the event was handled; a
// storage failure returns false and is only logged.
func (t *Tracker) Track(ctx context.Context, req models.TrackRequest, meta RequestMeta) bool {
	if req == nil {
		logger.FromContext(ctx).Warn().Msg("track called without a request")
		return false
	}

	eventType := req.EventType()
	if pv, ok := req.(models.PageView); ok && t.ignored(pv.PagePath) {
		metrics.EventsTracked.WithLabelValues(string(eventType), "skipped").Inc()
		return true
	}

	event := models.NewEvent(req)
	event.UserAgent = strings.TrimSpace(meta.UserAgent)
	event.Country = strings.ToUpper(strings.TrimSpace(meta.Country))
	event.Referrer = strings.TrimSpace(meta.Referrer)
	event.Timestamp = t.now().UTC()

	if err := t.store.InsertEvent(ctx, event); err != nil {
		metrics.EventsTracked.WithLabelValues(string(eventType), "failed").Inc()
		logger.FromContext(ctx).Error().Err(err).Str("event_type", string(eventType)).Msg("analytics tracking failed")
		return false
	}

	metrics.EventsTracked.WithLabelValues(string(eventType), "stored").Inc()
	return true
}

func (t *Tracker) ignored(path string) bool {
	for _, prefix := range t.ignorePrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
