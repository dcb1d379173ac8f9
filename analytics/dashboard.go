package analytics

import (
	"context"
	"sort"
	"time"

	"investgroup/api/geo"
	"investgroup/api/logger"
	"investgroup/api/models"
	"investgroup/api/useragent"
)

// recentDays is how many days the activity chart shows.
const recentDays = 14

// TitleResolver looks up article titles by slug.
type TitleResolver interface {
	TitlesBySlug(ctx context.Context, slugs []string) (map[string]string, error)
}

// WithTitles sets the resolver used to label top articles on the dashboard.
func (a *Aggregator) WithTitles(r TitleResolver) *Aggregator {
	a.titles = r
	return a
}

// Dashboard summarises the window and decorates it for display.
func (a *Aggregator) Dashboard(ctx context.Context, days int) models.Dashboard {
	summary := a.Summarize(ctx, days)
	return BuildDashboard(summary, a.articleTitles(ctx, summary.TopArticles))
}

func (a *Aggregator) articleTitles(ctx context.Context, articles []models.ArticleCount) map[string]string {
	if a.titles == nil || len(articles) == 0 {
		return nil
	}
	slugs := make([]string, len(articles))
	for i, art := range articles {
		slugs[i] = art.ArticleSlug
	}
	titles, err := a.titles.TitlesBySlug(ctx, slugs)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("failed to fetch article titles")
		return nil
	}
	return titles
}

// BuildDashboard shapes a summary for the admin page: chronological timeline,
// zero-filled hour and weekday buckets, decorated countries, device and
// browser rollups and titled articles. Titles may be nil.
func BuildDashboard(s models.Summary, titles map[string]string) models.Dashboard {
	d := models.Dashboard{Summary: s}

	d.Timeline = make([]models.DayCount, len(s.EventsByDay))
	copy(d.Timeline, s.EventsByDay)
	sort.Slice(d.Timeline, func(i, j int) bool { return d.Timeline[i].Date < d.Timeline[j].Date })
	for _, day := range d.Timeline {
		if day.Count > d.MaxDayCount {
			d.MaxDayCount = day.Count
		}
	}
	d.RecentDays = d.Timeline
	if len(d.RecentDays) > recentDays {
		d.RecentDays = d.RecentDays[len(d.RecentDays)-recentDays:]
	}

	d.Articles = make([]models.TopArticleView, 0, len(s.TopArticles))
	for _, art := range s.TopArticles {
		title := titles[art.ArticleSlug]
		if title == "" {
			title = art.ArticleSlug
		}
		d.Articles = append(d.Articles, models.TopArticleView{
			ArticleSlug: art.ArticleSlug,
			Title:       title,
			Views:       art.Views,
		})
	}

	d.Countries = make([]models.CountryView, 0, len(s.TopCountries))
	for _, c := range s.TopCountries {
		d.Countries = append(d.Countries, models.CountryView{CountryLabel: geo.Label(c.Country), Count: c.Count})
	}

	d.Devices, d.Browsers = useragent.Rollup(s.UserAgents)
	d.Hourly = FillHours(s.HourlyEvents)
	d.Weekdays = FillWeekdays(s.WeekdayEvents)
	return d
}

// FillHours returns all 24 hours, with zero for hours that had no events.
func FillHours(counts []models.HourCount) []models.HourCount {
	out := make([]models.HourCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, c := range counts {
		if c.Hour >= 0 && c.Hour < 24 {
			out[c.Hour].Count += c.Count
		}
	}
	return out
}

// FillWeekdays returns Sunday through Saturday, with zero for days that had
// no events.
func FillWeekdays(counts []models.WeekdayCount) []models.WeekdayView {
	out := make([]models.WeekdayView, 7)
	for wd := range out {
		out[wd] = models.WeekdayView{Weekday: wd, Name: time.Weekday(wd).String()}
	}
	for _, c := range counts {
		if c.Weekday >= 0 && c.Weekday < 7 {
			out[c.Weekday].Count += c.Count
		}
	}
	return out
}
