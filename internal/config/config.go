package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/flight-delays/internal/delays"
)

// ErrMissingAPIKey is returned when AIRLABS_API_KEY is not set.
var ErrMissingAPIKey = errors.New("airlabs API key not found, set AIRLABS_API_KEY in your environment")

type AppConfig struct {
	AirlabsAPIKey     string
	AirlabsBaseURL    string
	AirlabsMaxRetries int

	// HTTPTimeout bounds each outbound provider request.
	HTTPTimeout time.Duration

	// Scheduled fetches.
	FetchInterval   time.Duration
	FetchCron       string
	FetchMinDelay   int
	FetchDirections []delays.Direction
	RunOnStart      bool

	// Persistence.
	StoreBackend string // sqlite | postgres | memory
	DBPath       string
	DatabaseURL  string

	Port     string
	LogLevel slog.Level
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.AirlabsAPIKey = strings.TrimSpace(getenv("AIRLABS_API_KEY"))
	if cfg.AirlabsAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg.AirlabsBaseURL = getenvDefault(getenv, "AIRLABS_BASE_URL", "https://airlabs.co/api/v9/delays")

	var err error
	if cfg.AirlabsMaxRetries, err = getenvInt(getenv, "AIRLABS_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.AirlabsMaxRetries < 0 {
		return nil, fmt.Errorf("invalid AIRLABS_MAX_RETRIES: must be >= 0")
	}

	if cfg.HTTPTimeout, err = getenvDuration(getenv, "HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	// Scheduler interval: default 30 minutes.
	if cfg.FetchInterval, err = getenvDuration(getenv, "FETCH_INTERVAL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.FetchInterval <= 0 {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: must be positive")
	}
	cfg.FetchCron = strings.TrimSpace(getenv("FETCH_CRON"))

	if cfg.FetchMinDelay, err = getenvInt(getenv, "FETCH_MIN_DELAY", 30); err != nil {
		return nil, err
	}
	if cfg.FetchMinDelay < 0 {
		return nil, fmt.Errorf("invalid FETCH_MIN_DELAY: must be >= 0")
	}

	dirs, err := parseDirections(getenvDefault(getenv, "FETCH_DIRECTIONS", "departures,arrivals"))
	if err != nil {
		return nil, err
	}
	cfg.FetchDirections = dirs

	if cfg.RunOnStart, err = getenvBool(getenv, "RUN_ON_START", false); err != nil {
		return nil, err
	}

	cfg.StoreBackend = strings.ToLower(getenvDefault(getenv, "STORE_BACKEND", "sqlite"))
	cfg.DBPath = getenvDefault(getenv, "DB_PATH", "flight_delays.db")
	cfg.DatabaseURL = getenv("DATABASE_URL")
	switch cfg.StoreBackend {
	case "sqlite", "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}

	cfg.Port = getenvDefault(getenv, "PORT", "8080")

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault(getenv, "LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func parseDirections(s string) ([]delays.Direction, error) {
	var dirs []delays.Direction
	seen := make(map[delays.Direction]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		d, ok := delays.ParseDirection(part)
		if !ok {
			return nil, fmt.Errorf("invalid FETCH_DIRECTIONS entry %q", part)
		}
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs, nil
}

func getenvDefault(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
