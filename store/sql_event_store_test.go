package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investgroup/api/database"
	"investgroup/api/models"
)

var since = time.Date(2026, 9, 16, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestPostgres_InsertEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s := NewSQLEventStore(db, Postgres).WithClock(func() time.Time { return now })
	e := &models.Event{EventType: models.EventPageView, PagePath: strPtr("/"), UserAgent: "ua", Country: "US"}

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WithArgs(sqlmock.AnyArg(), "page_view", "/", nil, nil, "ua", "US", "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.InsertEvent(context.Background(), e))
	assert.NotEmpty(t, e.ID, "id assigned")
	assert.Equal(t, now, e.Timestamp, "server timestamp assigned")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertEvent_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO analytics_events`).WillReturnError(errors.New("connection refused"))

	err = NewSQLEventStore(db, Postgres).InsertEvent(context.Background(), &models.Event{EventType: models.EventTopicFilter})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic_filter")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPostgres_CountEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLEventStore(db, Postgres)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM analytics_events WHERE "timestamp" >= \$1$`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM analytics_events WHERE "timestamp" >= \$1 AND event_type = \$2`).
		WithArgs(since, "article_view").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.CountEvents(context.Background(), models.CountFilter{Since: since})
	require.NoError(t, err)
	assert.Equal(t, uint64(17), n)

	n, err = s.CountEvents(context.Background(), models.CountFilter{Since: since, EventType: models.EventArticleView})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GroupCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLEventStore(db, Postgres)

	mock.ExpectQuery(`SELECT article_slug AS group_key, COUNT\(\*\) AS group_count\s+FROM analytics_events\s+WHERE "timestamp" >= \$1 AND event_type = \$2 AND article_slug IS NOT NULL AND article_slug <> ''\s+GROUP BY group_key\s+ORDER BY group_count DESC, group_key ASC LIMIT \$3`).
		WithArgs(since, "article_view", 10).
		WillReturnRows(sqlmock.NewRows([]string{"group_key", "group_count"}).
			AddRow("rates", 5).
			AddRow("gold", 2))

	rows, err := s.GroupCounts(context.Background(), models.GroupQuery{
		Dimension: models.DimArticleSlug,
		EventType: models.EventArticleView,
		Since:     since,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.GroupCount{{Key: "rates", Count: 5}, {Key: "gold", Count: 2}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GroupCounts_DayByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLEventStore(db, Postgres)

	mock.ExpectQuery(`SELECT to_char\("timestamp" AT TIME ZONE 'UTC', 'YYYY-MM-DD'\) AS group_key.+ORDER BY group_key DESC LIMIT \$2`).
		WithArgs(since, 30).
		WillReturnRows(sqlmock.NewRows([]string{"group_key", "group_count"}).AddRow("2026-10-16", 3))

	rows, err := s.GroupCounts(context.Background(), models.GroupQuery{
		Dimension: models.DimDay, Since: since, Limit: 30, Order: models.OrderByKeyDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.GroupCount{{Key: "2026-10-16", Count: 3}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GroupCounts_UnboundedUserAgents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLEventStore(db, Postgres)

	mock.ExpectQuery(`SELECT user_agent AS group_key.+WHERE "timestamp" >= \$1\s+GROUP BY group_key\s+ORDER BY group_count DESC, group_key ASC$`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"group_key", "group_count"}).AddRow("", 2))

	rows, err := s.GroupCounts(context.Background(), models.GroupQuery{Dimension: models.DimUserAgent, Since: since})
	require.NoError(t, err)
	assert.Equal(t, []models.GroupCount{{Key: "", Count: 2}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLEventStore_UnsupportedDimension(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLEventStore(db, SQLite).GroupCounts(context.Background(), models.GroupQuery{Dimension: "session"})
	assert.ErrorIs(t, err, ErrUnsupportedDimension)
}

func TestSQLEventStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	_, err = NewSQLEventStore(db, Postgres).GroupCounts(context.Background(), models.GroupQuery{Dimension: models.DimCountry, Since: since})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{"sqlite": "sqlite", "SQLite3": "sqlite", "postgresql": "postgres", "duckdb": "duckdb"} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, want, d.Name)
	}
	_, err := DialectFor("clickhouse")
	assert.Error(t, err)
}

func TestSQLite_RoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	s := NewSQLEventStore(db, SQLite)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrate is idempotent")

	ts := time.Date(2026, 10, 16, 7, 5, 0, 0, time.UTC)
	for _, e := range []*models.Event{
		{EventType: models.EventPageView, PagePath: strPtr("/"), Country: "US", Timestamp: ts},
		{EventType: models.EventPageView, PagePath: strPtr("/"), Country: "US", Timestamp: ts},
		{EventType: models.EventArticleView, ArticleSlug: strPtr("rates"), Timestamp: ts.Add(-48 * time.Hour)},
	} {
		require.NoError(t, s.InsertEvent(ctx, e))
	}

	n, err := s.CountEvents(ctx, models.CountFilter{Since: ts.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	countries, err := s.GroupCounts(ctx, models.GroupQuery{Dimension: models.DimCountry, Since: ts.Add(-72 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []models.GroupCount{{Key: "US", Count: 2}}, countries)

	hours, err := s.GroupCounts(ctx, models.GroupQuery{Dimension: models.DimHour, Since: ts.Add(-72 * time.Hour), Order: models.OrderByKeyDesc})
	require.NoError(t, err)
	assert.Equal(t, []models.GroupCount{{Key: "7", Count: 3}}, hours)

	require.NoError(t, s.Ping(ctx))
}

func TestSQLite_ReaderPoolLeavesWriterFree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	writer, err := database.NewSQLiteDB(path)
	require.NoError(t, err)
	defer writer.Close()

	s := NewSQLEventStore(writer.DB, SQLite)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.InsertEvent(ctx, &models.Event{EventType: models.EventPageView, PagePath: strPtr("/")}))

	reader, err := database.NewSQLiteReader(path, 2)
	require.NoError(t, err)
	defer reader.Close()
	s.WithReader(reader.DB)

	// a long-running dashboard read holds one reader connection
	rows, err := reader.DB.QueryContext(ctx, `SELECT id FROM analytics_events`)
	require.NoError(t, err)
	defer rows.Close()

	writeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.InsertEvent(writeCtx, &models.Event{EventType: models.EventTopicFilter, Topic: strPtr("Macro")}))

	n, err := s.CountEvents(ctx, models.CountFilter{Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n, "reader sees committed writes")
}
