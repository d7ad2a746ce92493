package config

import (
	"os"
	"strconv"
)

// Config holds the server configuration
type Config struct {
	Port         string
	DBPath       string
	ManifestPath string
	JWTSecret    string // Empty disables API authentication
	Timezone     string // IANA zone used for day bucketing; empty means system local

	ScanBatchSize    int
	ClusterMinPoints int
	MaxMergeDistance float64 // Meters
	GeocodeTTLDays   int
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:             envOr("PORT", ":8080"),
		DBPath:           envOr("DB_PATH", "./data/moments/moments.db"),
		ManifestPath:     envOr("MANIFEST_PATH", "./data/moments/library.json"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		Timezone:         os.Getenv("TIMEZONE"),
		ScanBatchSize:    envIntOr("SCAN_BATCH_SIZE", 300),
		ClusterMinPoints: envIntOr("CLUSTER_MIN_POINTS", 2),
		MaxMergeDistance: envFloatOr("MAX_MERGE_DISTANCE", 500),
		GeocodeTTLDays:   envIntOr("GEOCODE_TTL_DAYS", 7),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
