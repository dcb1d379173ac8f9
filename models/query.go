package models

import "time"

// Dimension names a column or derived time bucket events can be grouped by.
type Dimension string

const (
	DimPagePath    Dimension = "page_path"
	DimArticleSlug Dimension = "article_slug"
	DimTopic       Dimension = "topic"
	DimCountry     Dimension = "country"
	DimReferrer    Dimension = "referrer"
	DimUserAgent   Dimension = "user_agent"
	DimDay         Dimension = "day"
	DimHour        Dimension = "hour"
	DimWeekday     Dimension = "weekday"
)

// SkipsEmpty reports whether NULL and empty values are left out of the
// grouping. Raw user agents keep the empty string so it can be classified
// as Unknown.
func (d Dimension) SkipsEmpty() bool {
	switch d {
	case DimPagePath, DimArticleSlug, DimTopic, DimCountry, DimReferrer:
		return true
	default:
		return false
	}
}

type GroupOrder int

const (
	OrderByCountDesc GroupOrder = iota
	OrderByKeyDesc
)

// CountFilter selects events at or after Since. An empty EventType counts all types.
type CountFilter struct {
	Since     time.Time
	EventType EventType
}

// GroupQuery is one grouped count. Limit 0 means no limit.
type GroupQuery struct {
	Dimension Dimension
	EventType EventType
	Since     time.Time
	Limit     int
	Order     GroupOrder
}

type GroupCount struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}
