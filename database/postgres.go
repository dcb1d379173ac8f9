package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"
)

type DBClient struct {
	DB *sql.DB
}

// NewPostgresDB opens the site database. It backs the admin accounts, the
// article title lookup and, with EVENT_STORE=postgres, the event table.
func NewPostgresDB(dbURL string) (*DBClient, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("postgres: empty connection url")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	zlog.Info().Msg("connected to PostgreSQL")
	return &DBClient{DB: db}, nil
}

func (c *DBClient) Close() {
	if c == nil || c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		zlog.Error().Err(err).Msg("error closing database connection")
		return
	}
	zlog.Info().Msg("PostgreSQL connection closed")
}
