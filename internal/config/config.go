package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ListenAddr string
	Debug      bool

	// Storage: Redis wins over PostgreSQL, PostgreSQL over the SQLite file.
	DBPath      string
	DatabaseURL string
	RedisURL    string

	// OpenRouteService
	ORSAPIKey     string
	ORSBaseURL    string
	PlacesCountry string

	CalculationTimeout time.Duration

	SeedPath string
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:         Get("LISTEN_ADDR", "127.0.0.1:8080"),
		Debug:              getBool("DEBUG", false),
		DBPath:             Get("DB_PATH", "data/estimator.db"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		ORSAPIKey:          strings.TrimSpace(os.Getenv("ORS_API_KEY")),
		ORSBaseURL:         Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		PlacesCountry:      Get("PLACES_COUNTRY", "RO"),
		CalculationTimeout: getDuration("CALCULATION_TIMEOUT", 30*time.Second),
		SeedPath:           Get("SEED_PATH", ""),
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
