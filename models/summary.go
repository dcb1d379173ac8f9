package models

import "time"

type PageCount struct {
	PagePath string `json:"page_path"`
	Views    uint64 `json:"views"`
}

type ArticleCount struct {
	ArticleSlug string `json:"article_slug"`
	Views       uint64 `json:"views"`
}

type TopicCount struct {
	Topic  string `json:"topic"`
	Clicks uint64 `json:"clicks"`
}

// DayCount is keyed by the UTC calendar date, formatted YYYY-MM-DD.
type DayCount struct {
	Date  string `json:"date"`
	Count uint64 `json:"count"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   uint64 `json:"count"`
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    uint64 `json:"count"`
}

type UserAgentCount struct {
	UserAgent string `json:"user_agent"`
	Count     uint64 `json:"count"`
}

type HourCount struct {
	Hour  int    `json:"hour"`
	Count uint64 `json:"count"`
}

// WeekdayCount uses 0 for Sunday through 6 for Saturday.
type WeekdayCount struct {
	Weekday int    `json:"weekday"`
	Count   uint64 `json:"count"`
}

// Summary is the per-request analytics rollup. List fields are never nil.
// Degraded names the fields whose query failed and were left empty.
type Summary struct {
	Days        int       `json:"days"`
	Since       time.Time `json:"since"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalEvents  uint64 `json:"total_events"`
	PageViews    uint64 `json:"page_views"`
	ArticleViews uint64 `json:"article_views"`
	PDFDownloads uint64 `json:"pdf_downloads"`

	TopPages      []PageCount      `json:"top_pages"`
	TopArticles   []ArticleCount   `json:"top_articles"`
	TopTopics     []TopicCount     `json:"top_topics"`
	EventsByDay   []DayCount       `json:"events_by_day"`
	TopCountries  []CountryCount   `json:"top_countries"`
	TopReferrers  []ReferrerCount  `json:"top_referrers"`
	UserAgents    []UserAgentCount `json:"user_agents"`
	HourlyEvents  []HourCount      `json:"hourly_events"`
	WeekdayEvents []WeekdayCount   `json:"weekday_events"`

	Degraded []string `json:"degraded"`
}

// EmptySummary returns a summary with zero counts and empty, non-nil lists.
func EmptySummary(days int, since, now time.Time) Summary {
	return Summary{
		Days:          days,
		Since:         since,
		GeneratedAt:   now,
		TopPages:      []PageCount{},
		TopArticles:   []ArticleCount{},
		TopTopics:     []TopicCount{},
		EventsByDay:   []DayCount{},
		TopCountries:  []CountryCount{},
		TopReferrers:  []ReferrerCount{},
		UserAgents:    []UserAgentCount{},
		HourlyEvents:  []HourCount{},
		WeekdayEvents: []WeekdayCount{},
		Degraded:      []string{},
	}
}

type NamedCount struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

type CountryLabel struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

type CountryView struct {
	CountryLabel
	Count uint64 `json:"count"`
}

type TopArticleView struct {
	ArticleSlug string `json:"article_slug"`
	Title       string `json:"title"`
	Views       uint64 `json:"views"`
}

type WeekdayView struct {
	Weekday int    `json:"weekday"`
	Name    string `json:"name"`
	Count   uint64 `json:"count"`
}

// Dashboard is the decorated view of a Summary rendered by the admin page.
type Dashboard struct {
	Summary Summary `json:"summary"`

	Timeline    []DayCount       `json:"timeline"`
	RecentDays  []DayCount       `json:"recent_days"`
	MaxDayCount uint64           `json:"max_day_count"`
	Articles    []TopArticleView `json:"articles"`
	Countries   []CountryView    `json:"countries"`
	Devices     []NamedCount     `json:"devices"`
	Browsers    []NamedCount     `json:"browsers"`
	Hourly      []HourCount      `json:"hourly"`
	Weekdays    []WeekdayView    `json:"weekdays"`
}
