package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"investgroup/api/models"
)

var ErrUnsupportedDimension = errors.New("unsupported group dimension")

// SQLEventStore keeps analytics events in a database/sql backend (SQLite,
// PostgreSQL or DuckDB).
type SQLEventStore struct {
	db      *sql.DB
	reader  *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLEventStore(db *sql.DB, dialect Dialect) *SQLEventStore {
	return &SQLEventStore{db: db, dialect: dialect, now: time.Now}
}

// WithClock replaces the clock used for server-assigned timestamps.
func (s *SQLEventStore) WithClock(now func() time.Time) *SQLEventStore {
	s.now = now
	return s
}

// WithReader routes aggregate queries to a separate pool, leaving db for
// writes.
func (s *SQLEventStore) WithReader(reader *sql.DB) *SQLEventStore {
	s.reader = reader
	return s
}

func (s *SQLEventStore) Dialect() Dialect { return s.dialect }

func (s *SQLEventStore) readDB() *sql.DB {
	if s.reader != nil {
		return s.reader
	}
	return s.db
}

// Migrate creates the events table and its indexes if they do not exist.
func (s *SQLEventStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s analytics_events: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *SQLEventStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLEventStore) InsertEvent(ctx context.Context, e *models.Event) error {
	prepareEvent(e, s.now)

	p := s.dialect.Placeholder
	query := fmt.Sprintf(`INSERT INTO analytics_events
		(id, event_type, page_path, article_slug, topic, user_agent, country, referrer, "timestamp")
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9))

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		string(e.EventType),
		nullable(e.PagePath),
		nullable(e.ArticleSlug),
		nullable(e.Topic),
		e.UserAgent,
		e.Country,
		e.Referrer,
		s.dialect.BindTime(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", e.EventType, err)
	}
	return nil
}

func (s *SQLEventStore) CountEvents(ctx context.Context, f models.CountFilter) (uint64, error) {
	p := s.dialect.Placeholder
	query := fmt.Sprintf(`SELECT COUNT(*) FROM analytics_events WHERE "timestamp" >= %s`, p(1))
	args := []any{s.dialect.BindTime(f.Since)}
	if f.EventType != "" {
		query += fmt.Sprintf(" AND event_type = %s", p(2))
		args = append(args, string(f.EventType))
	}

	var count int64
	if err := s.readDB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return uint64(count), nil
}

func (s *SQLEventStore) GroupCounts(ctx context.Context, q models.GroupQuery) ([]models.GroupCount, error) {
	query, args, err := s.buildGroupQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.readDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s counts: %w", q.Dimension, err)
	}
	defer rows.Close()

	results := []models.GroupCount{}
	for rows.Next() {
		var (
			key   sql.NullString
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s counts: %w", q.Dimension, err)
		}
		results = append(results, models.GroupCount{Key: key.String, Count: uint64(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during %s counts: %w", q.Dimension, err)
	}
	return results, nil
}

func (s *SQLEventStore) buildGroupQuery(q models.GroupQuery) (string, []any, error) {
	expr, err := s.dialect.groupExpr(q.Dimension)
	if err != nil {
		return "", nil, err
	}

	p := s.dialect.Placeholder
	args := []any{s.dialect.BindTime(q.Since)}
	where := []string{fmt.Sprintf(`"timestamp" >= %s`, p(1))}
	if q.EventType != "" {
		args = append(args, string(q.EventType))
		where = append(where, fmt.Sprintf("event_type = %s", p(len(args))))
	}
	if q.Dimension.SkipsEmpty() {
		where = append(where, fmt.Sprintf("%s IS NOT NULL AND %s <> ''", expr, expr))
	}

	order := "group_count DESC, group_key ASC"
	if q.Order == models.OrderByKeyDesc {
		order = "group_key DESC"
	}

	query := fmt.Sprintf(`SELECT %s AS group_key, COUNT(*) AS group_count
		FROM analytics_events
		WHERE %s
		GROUP BY group_key
		ORDER BY %s`, expr, strings.Join(where, " AND "), order)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT %s", p(len(args)))
	}
	return query, args, nil
}

// prepareEvent assigns the id and server timestamp when missing.
func prepareEvent(e *models.Event, now func() time.Time) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now().UTC()
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
