// api/store/analytics_store.go
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	zlog "github.com/rs/zerolog/log"

	"investgroup/api/models"
)

const clickHouseSchema = `
	CREATE TABLE IF NOT EXISTS analytics_events (
		event_id     UUID,
		event_type   LowCardinality(String),
		page_path    Nullable(String),
		article_slug Nullable(String),
		topic        Nullable(String),
		user_agent   String,
		country      LowCardinality(String),
		referrer     String,
		timestamp    DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (event_type, timestamp)
`

// ClickHouseEventStore is the EventStore for the ClickHouse deployment. Rows
// are written through the native batch API.
type ClickHouseEventStore struct {
	conn clickhouse.Conn
	now  func() time.Time
}

func NewClickHouseEventStore(conn clickhouse.Conn) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn, now: time.Now}
}

func (s *ClickHouseEventStore) Migrate(ctx context.Context) error {
	if err := s.conn.Exec(ctx, clickHouseSchema); err != nil {
		return fmt.Errorf("migrate clickhouse analytics_events: %w", err)
	}
	return nil
}

func (s *ClickHouseEventStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *ClickHouseEventStore) InsertEvent(ctx context.Context, e *models.Event) error {
	return s.InsertEvents(ctx, []*models.Event{e})
}

// InsertEvents sends all events in one batch. Column order must match the
// table definition.
func (s *ClickHouseEventStore) InsertEvents(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			event_id, event_type, page_path, article_slug, topic, user_agent, country, referrer, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		prepareEvent(event, s.now)
		err := batch.Append(
			event.ID,
			string(event.EventType),
			event.PagePath,
			event.ArticleSlug,
			event.Topic,
			event.UserAgent,
			event.Country,
			event.Referrer,
			event.Timestamp,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event %s to batch: %w", event.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	zlog.Debug().Int("events", len(events)).Msg("inserted analytics events")
	return nil
}

func (s *ClickHouseEventStore) CountEvents(ctx context.Context, f models.CountFilter) (uint64, error) {
	query := `SELECT count() FROM analytics_events WHERE timestamp >= ?`
	args := []any{f.Since.UTC()}
	if f.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, string(f.EventType))
	}

	var count uint64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (s *ClickHouseEventStore) GroupCounts(ctx context.Context, q models.GroupQuery) ([]models.GroupCount, error) {
	query, args, err := clickHouseGroupQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s counts: %w", q.Dimension, err)
	}
	defer rows.Close()

	results := []models.GroupCount{}
	for rows.Next() {
		var (
			key   string
			count uint64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s counts: %w", q.Dimension, err)
		}
		results = append(results, models.GroupCount{Key: key, Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during %s counts: %w", q.Dimension, err)
	}
	return results, nil
}

func clickHouseGroupExpr(dim models.Dimension) (string, error) {
	switch dim {
	case models.DimPagePath, models.DimArticleSlug, models.DimTopic:
		return fmt.Sprintf("assumeNotNull(%s)", dim), nil
	case models.DimCountry, models.DimReferrer, models.DimUserAgent:
		return string(dim), nil
	case models.DimDay:
		return "toString(toDate(timestamp))", nil
	case models.DimHour:
		return "toString(toHour(timestamp))", nil
	case models.DimWeekday:
		// toDayOfWeek is 1 (Monday) .. 7 (Sunday)
		return "toString(toDayOfWeek(timestamp) % 7)", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDimension, dim)
	}
}

func clickHouseGroupQuery(q models.GroupQuery) (string, []any, error) {
	expr, err := clickHouseGroupExpr(q.Dimension)
	if err != nil {
		return "", nil, err
	}

	args := []any{q.Since.UTC()}
	where := []string{"timestamp >= ?"}
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(q.EventType))
	}
	if q.Dimension.SkipsEmpty() {
		col := string(q.Dimension)
		where = append(where, fmt.Sprintf("%s IS NOT NULL AND %s != ''", col, col))
	}

	order := "group_count DESC, group_key ASC"
	if q.Order == models.OrderByKeyDesc {
		order = "group_key DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s AS group_key, count() AS group_count
		FROM analytics_events
		WHERE %s
		GROUP BY group_key
		ORDER BY %s
	`, expr, strings.Join(where, " AND "), order)

	if q.Limit > 0 {
		query += fmt.Sprintf("LIMIT %d", q.Limit)
	}
	return query, args, nil
}
