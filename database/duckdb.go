package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	zlog "github.com/rs/zerolog/log"
)

func NewDuckDB(path string) (*DBClient, error) {
	if path == "" {
		return nil, fmt.Errorf("duckdb: empty path")
	}

	db, err := sql.Open("duckdb", path+"?access_mode=read_write")
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb %s: %w", path, err)
	}

	zlog.Info().Str("path", path).Msg("opened DuckDB event database")
	return &DBClient{DB: db}, nil
}
