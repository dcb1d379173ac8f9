package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"
)

// NewSQLiteDB opens a SQLite file (or ":memory:"). A single connection is
// kept open so in-memory databases survive between queries and writers never
// contend for the file lock.
func NewSQLiteDB(path string) (*DBClient, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}

	dsn := path + "?_busy_timeout=5000"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	zlog.Info().Str("path", path).Msg("opened SQLite event database")
	return &DBClient{DB: db}, nil
}

// NewSQLiteReader opens a read-only pool over an existing SQLite file. With
// WAL enabled readers do not block the writer connection, so dashboard
// queries and track inserts stop queueing behind each other. The file must
// already exist; in-memory databases cannot be shared and are rejected.
func NewSQLiteReader(path string, maxConns int) (*DBClient, error) {
	if path == "" || path == ":memory:" {
		return nil, fmt.Errorf("sqlite reader needs a database file, got %q", path)
	}
	if maxConns <= 0 {
		maxConns = 4
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000&_query_only=1")
	if err != nil {
		return nil, fmt.Errorf("open sqlite reader %s: %w", path, err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite reader %s: %w", path, err)
	}

	zlog.Info().Str("path", path).Int("max_conns", maxConns).Msg("opened SQLite read pool")
	return &DBClient{DB: db}, nil
}
