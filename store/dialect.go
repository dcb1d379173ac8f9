package store

import (
	"fmt"
	"strings"
	"time"

	"investgroup/api/models"
)

// Dialect carries the backend-specific SQL for the analytics_events table.
// Time buckets are always produced as text in UTC so every backend returns
// the same keys.
type Dialect struct {
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	DayExpr     string
	HourExpr    string
	WeekdayExpr string

	// BindTime converts a timestamp into the value stored in the
	// timestamp column.
	BindTime func(t time.Time) any

	Schema []string
}

// sqliteTimeLayout sorts lexically in time order and is understood by
// SQLite's date functions.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	DayExpr:     `strftime('%Y-%m-%d', "timestamp")`,
	HourExpr:    `CAST(CAST(strftime('%H', "timestamp") AS INTEGER) AS TEXT)`,
	WeekdayExpr: `strftime('%w', "timestamp")`,
	BindTime:    func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id           TEXT PRIMARY KEY,
			event_type   TEXT NOT NULL,
			page_path    TEXT,
			article_slug TEXT,
			topic        TEXT,
			user_agent   TEXT NOT NULL DEFAULT '',
			country      TEXT NOT NULL DEFAULT '',
			referrer     TEXT NOT NULL DEFAULT '',
			"timestamp"  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_ts ON analytics_events ("timestamp")`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_type_ts ON analytics_events (event_type, "timestamp")`,
	},
}

var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	DayExpr:     `to_char("timestamp" AT TIME ZONE 'UTC', 'YYYY-MM-DD')`,
	HourExpr:    `EXTRACT(HOUR FROM "timestamp" AT TIME ZONE 'UTC')::int::text`,
	WeekdayExpr: `EXTRACT(DOW FROM "timestamp" AT TIME ZONE 'UTC')::int::text`,
	BindTime:    func(t time.Time) any { return t.UTC() },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id           UUID PRIMARY KEY,
			event_type   TEXT NOT NULL,
			page_path    TEXT,
			article_slug TEXT,
			topic        TEXT,
			user_agent   TEXT NOT NULL DEFAULT '',
			country      TEXT NOT NULL DEFAULT '',
			referrer     TEXT NOT NULL DEFAULT '',
			"timestamp"  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_ts ON analytics_events ("timestamp")`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_type_ts ON analytics_events (event_type, "timestamp")`,
	},
}

// DuckDB stores naive UTC timestamps.
var DuckDB = Dialect{
	Name:        "duckdb",
	Placeholder: func(int) string { return "?" },
	DayExpr:     `strftime("timestamp", '%Y-%m-%d')`,
	HourExpr:    `CAST(hour("timestamp") AS VARCHAR)`,
	WeekdayExpr: `CAST(dayofweek("timestamp") AS VARCHAR)`,
	BindTime:    func(t time.Time) any { return t.UTC() },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id           VARCHAR PRIMARY KEY,
			event_type   VARCHAR NOT NULL,
			page_path    VARCHAR,
			article_slug VARCHAR,
			topic        VARCHAR,
			user_agent   VARCHAR NOT NULL DEFAULT '',
			country      VARCHAR NOT NULL DEFAULT '',
			referrer     VARCHAR NOT NULL DEFAULT '',
			"timestamp"  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_ts ON analytics_events ("timestamp")`,
	},
}

// DialectFor maps an EVENT_STORE name to its dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "duckdb":
		return DuckDB, nil
	default:
		return Dialect{}, fmt.Errorf("no SQL dialect for %q", name)
	}
}

// groupExpr returns the SQL expression for a dimension.
func (d Dialect) groupExpr(dim models.Dimension) (string, error) {
	switch dim {
	case models.DimPagePath, models.DimArticleSlug, models.DimTopic,
		models.DimCountry, models.DimReferrer, models.DimUserAgent:
		return string(dim), nil
	case models.DimDay:
		return d.DayExpr, nil
	case models.DimHour:
		return d.HourExpr, nil
	case models.DimWeekday:
		return d.WeekdayExpr, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDimension, dim)
	}
}
