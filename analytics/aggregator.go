package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"investgroup/api/logger"
	"investgroup/api/metrics"
	"investgroup/api/models"
)

const (
	DefaultDays = 30
	topLimit    = 10
	dayLimit    = 30
)

// Aggregator builds dashboard summaries from the event store.
type Aggregator struct {
	store  EventReader
	titles TitleResolver
	now    func() time.Time
}

func NewAggregator(store EventReader) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// WithClock replaces the clock the cutoff is computed from.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Cutoff is the inclusive lower bound of a window of the given days.
func Cutoff(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}

type subQuery struct {
	field string
	run   func(ctx context.Context, store EventReader, s *models.Summary, since time.Time) error
}

// subQueries is the fixed battery behind a summary. Each one fills exactly
// one field of the summary.
var subQueries = []subQuery{
	{"total_events", countInto(func(s *models.Summary) *uint64 { return &s.TotalEvents }, "")},
	{"page_views", countInto(func(s *models.Summary) *uint64 { return &s.PageViews }, models.EventPageView)},
	{"article_views", countInto(func(s *models.Summary) *uint64 { return &s.ArticleViews }, models.EventArticleView)},
	{"pdf_downloads", countInto(func(s *models.Summary) *uint64 { return &s.PDFDownloads }, models.EventPDFDownload)},
	{"top_pages", groupInto(models.DimPagePath, "", topLimit, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.TopPages = mapRows(rows, func(r models.GroupCount) models.PageCount {
				return models.PageCount{PagePath: r.Key, Views: r.Count}
			})
			return nil
		})},
	{"top_articles", groupInto(models.DimArticleSlug, models.EventArticleView, topLimit, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.TopArticles = mapRows(rows, func(r models.GroupCount) models.ArticleCount {
				return models.ArticleCount{ArticleSlug: r.Key, Views: r.Count}
			})
			return nil
		})},
	{"top_topics", groupInto(models.DimTopic, models.EventTopicFilter, topLimit, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.TopTopics = mapRows(rows, func(r models.GroupCount) models.TopicCount {
				return models.TopicCount{Topic: r.Key, Clicks: r.Count}
			})
			return nil
		})},
	{"events_by_day", groupInto(models.DimDay, "", dayLimit, models.OrderByKeyDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.EventsByDay = mapRows(rows, func(r models.GroupCount) models.DayCount {
				return models.DayCount{Date: r.Key, Count: r.Count}
			})
			return nil
		})},
	{"top_countries", groupInto(models.DimCountry, "", topLimit, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.TopCountries = mapRows(rows, func(r models.GroupCount) models.CountryCount {
				return models.CountryCount{Country: r.Key, Count: r.Count}
			})
			return nil
		})},
	{"top_referrers", groupInto(models.DimReferrer, "", topLimit, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.TopReferrers = mapRows(rows, func(r models.GroupCount) models.ReferrerCount {
				return models.ReferrerCount{Referrer: r.Key, Count: r.Count}
			})
			return nil
		})},
	{"user_agents", groupInto(models.DimUserAgent, "", 0, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			s.UserAgents = mapRows(rows, func(r models.GroupCount) models.UserAgentCount {
				return models.UserAgentCount{UserAgent: r.Key, Count: r.Count}
			})
			return nil
		})},
	{"hourly_events", groupInto(models.DimHour, "", 0, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			hours, err := bucketRows(rows, 23, func(b int, n uint64) models.HourCount {
				return models.HourCount{Hour: b, Count: n}
			})
			if err != nil {
				return err
			}
			s.HourlyEvents = hours
			return nil
		})},
	{"weekday_events", groupInto(models.DimWeekday, "", 0, models.OrderByCountDesc,
		func(s *models.Summary, rows []models.GroupCount) error {
			days, err := bucketRows(rows, 6, func(b int, n uint64) models.WeekdayCount {
				return models.WeekdayCount{Weekday: b, Count: n}
			})
			if err != nil {
				return err
			}
			s.WeekdayEvents = days
			return nil
		})},
}

// SubQueryFields lists the summary fields in the order their queries are
// declared.
func SubQueryFields() []string {
	fields := make([]string, len(subQueries))
	for i, q := range subQueries {
		fields[i] = q.field
	}
	return fields
}

// Summarize rolls up the last days of events. It never fails: a sub-query
// error leaves that field at its zero value and lists it in Degraded.
// Non-positive days fall back to DefaultDays.
func (a *Aggregator) Summarize(ctx context.Context, days int) models.Summary {
	start := time.Now()
	defer func() { metrics.SummaryDuration.Observe(time.Since(start).Seconds()) }()

	if days <= 0 {
		days = DefaultDays
	}
	now := a.now().UTC()
	since := Cutoff(now, days)
	summary := models.EmptySummary(days, since, now)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		degraded []string
	)
	for _, q := range subQueries {
		wg.Add(1)
		go func(q subQuery) {
			defer wg.Done()
			if err := q.run(ctx, a.store, &summary, since); err != nil {
				metrics.SummaryQueryFailures.WithLabelValues(q.field).Inc()
				logger.FromContext(ctx).Error().Err(err).Str("field", q.field).Int("days", days).
					Msg("analytics summary query failed")
				mu.Lock()
				degraded = append(degraded, q.field)
				mu.Unlock()
			}
		}(q)
	}
	wg.Wait()

	sort.Strings(degraded)
	if len(degraded) > 0 {
		summary.Degraded = degraded
	}
	return summary
}

type queryFunc = func(ctx context.Context, store EventReader, s *models.Summary, since time.Time) error

func countInto(field func(*models.Summary) *uint64, eventType models.EventType) queryFunc {
	return func(ctx context.Context, store EventReader, s *models.Summary, since time.Time) error {
		n, err := store.CountEvents(ctx, models.CountFilter{Since: since, EventType: eventType})
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

func groupInto(dim models.Dimension, eventType models.EventType, limit int, order models.GroupOrder,
	assign func(*models.Summary, []models.GroupCount) error) queryFunc {
	return func(ctx context.Context, store EventReader, s *models.Summary, since time.Time) error {
		rows, err := store.GroupCounts(ctx, models.GroupQuery{
			Dimension: dim,
			EventType: eventType,
			Since:     since,
			Limit:     limit,
			Order:     order,
		})
		if err != nil {
			return err
		}
		return assign(s, rows)
	}
}

func mapRows[T any](rows []models.GroupCount, fn func(models.GroupCount) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}

// bucketRows parses numeric bucket keys in [0, maxBucket] and returns them in
// bucket order. Missing buckets are left out; the dashboard zero-fills them.
func bucketRows[T any](rows []models.GroupCount, maxBucket int, fn func(int, uint64) T) ([]T, error) {
	type bucket struct {
		n     int
		count uint64
	}
	parsed := make([]bucket, 0, len(rows))
	for _, r := range rows {
		b, err := strconv.Atoi(r.Key)
		if err != nil || b < 0 || b > maxBucket {
			return nil, fmt.Errorf("bad time bucket %q", r.Key)
		}
		parsed = append(parsed, bucket{n: b, count: r.Count})
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].n < parsed[j].n })

	out := make([]T, 0, len(parsed))
	for _, b := range parsed {
		out = append(out, fn(b.n, b.count))
	}
	return out, nil
}
