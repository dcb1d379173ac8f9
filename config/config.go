package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite     = "sqlite"
	StorePostgres   = "postgres"
	StoreDuckDB     = "duckdb"
	StoreClickHouse = "clickhouse"
)

type ClickHouseConfig struct {
	Host       string
	NativePort int
	Database   string
	Username   string
	Password   string
}

type Config struct {
	AppEnv  string
	Port    string
	GinMode string

	LogLevel  string
	LogFormat string

	// Event store backend and its location
	EventStore  string
	SQLitePath  string
	DuckDBPath  string
	DatabaseURL string
	ClickHouse  ClickHouseConfig

	// SQLiteReadConns sizes the read-only pool used for summaries.
	SQLiteReadConns int

	// Tracking
	CountryHeader       string
	TrackIgnorePrefixes []string
	TrackTimeout        time.Duration
	TrackRateLimit      float64
	TrackRateBurst      int

	SummaryTimeout time.Duration

	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// Admin access
	FrontendOrigin string
	JWTSecret      string
	JWTTTL         time.Duration
	AdminAPIKey    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getEnv("PORT", "8080")
	cfg.GinMode = getEnv("GIN_MODE", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.EventStore = strings.ToLower(getEnv("EVENT_STORE", StoreSQLite))
	cfg.SQLitePath = getEnv("SQLITE_PATH", "analytics.db")
	cfg.SQLiteReadConns = getInt("SQLITE_READ_CONNS", 4)
	cfg.DuckDBPath = getEnv("DUCKDB_PATH", "analytics.duckdb")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.ClickHouse = ClickHouseConfig{
		Host:       getEnv("CLICKHOUSE_HOST", ""),
		NativePort: getInt("CLICKHOUSE_NATIVE_PORT", 9000),
		Database:   getEnv("CLICKHOUSE_DB_NAME", ""),
		Username:   getEnv("CLICKHOUSE_USERNAME", "default"),
		Password:   getEnv("CLICKHOUSE_PASSWORD", ""),
	}

	cfg.CountryHeader = getEnv("COUNTRY_HEADER", "CF-IPCountry")
	cfg.TrackIgnorePrefixes = getList("TRACK_IGNORE_PREFIXES", []string{"/admin"})
	cfg.TrackTimeout = getDuration("TRACK_TIMEOUT", 2*time.Second)
	cfg.TrackRateLimit = getFloat("TRACK_RATE_LIMIT", 50)
	cfg.TrackRateBurst = getInt("TRACK_RATE_BURST", 100)

	cfg.SummaryTimeout = getDuration("SUMMARY_TIMEOUT", 10*time.Second)

	cfg.BreakerFailures = uint32(getInt("BREAKER_FAILURES", 5))
	cfg.BreakerTimeout = getDuration("BREAKER_TIMEOUT", 30*time.Second)

	cfg.FrontendOrigin = getEnv("FE_ORIGIN", "http://localhost:3000")
	cfg.JWTSecret = getEnv("JWT_SECRET_KEY", "")
	cfg.JWTTTL = getDuration("JWT_TTL", time.Hour)
	cfg.AdminAPIKey = getEnv("ADMIN_API_KEY", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EventStore {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("missing SQLITE_PATH")
		}
	case StoreDuckDB:
		if c.DuckDBPath == "" {
			return fmt.Errorf("missing DUCKDB_PATH")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DATABASE_URL for EVENT_STORE=postgres")
		}
	case StoreClickHouse:
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return fmt.Errorf("missing CLICKHOUSE_HOST or CLICKHOUSE_DB_NAME for EVENT_STORE=clickhouse")
		}
	default:
		return fmt.Errorf("unsupported EVENT_STORE %q", c.EventStore)
	}

	if c.JWTSecret == "" && c.AdminAPIKey == "" {
		return fmt.Errorf("one of JWT_SECRET_KEY or ADMIN_API_KEY must be set")
	}
	if c.JWTSecret != "" && c.DatabaseURL == "" {
		return fmt.Errorf("JWT_SECRET_KEY requires DATABASE_URL for admin accounts")
	}
	if c.BreakerFailures == 0 {
		return fmt.Errorf("BREAKER_FAILURES must be positive")
	}
	if c.TrackRateLimit <= 0 || c.TrackRateBurst <= 0 {
		return fmt.Errorf("TRACK_RATE_LIMIT and TRACK_RATE_BURST must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// getList splits a comma separated value. An explicitly empty list can be
// configured with "-".
func getList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if v == "-" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
