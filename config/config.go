package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"flat-ranker/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency   int
	RateLimitMs      int
	MaxRetries       int
	MaxSearch        int
	DaysSinceCreated int
	SearchMaxPrice   int
	SearchMinArea    int
	ChromeBin        string

	RawDataDir       string
	ProcessedDataDir string
	SummaryDir       string
	LogLevel         string

	Criteria models.Criteria
	Floor    models.FloorModel
	Center   models.Coordinates

	GeocoderURL       string
	GeocoderUserAgent string
	RouterURL         string
	GeoConcurrency    int
	GeoRateLimitMs    int
	GeoTimeout        time.Duration
}

// Load reads the .env file and returns a populated Config struct. When
// CRITERIA_FILE is set, the YAML file it names overrides the criteria and
// fake floor values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	defaults := models.DefaultCriteria()
	floor := models.DefaultFloorModel()

	cfg := &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", true),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency:   getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:      getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		MaxSearch:        getEnvInt("MAX_SEARCH", 4),
		DaysSinceCreated: getEnvInt("DAYS_SINCE_CREATED", 2),
		SearchMaxPrice:   getEnvInt("SEARCH_MAX_PRICE", 4000),
		SearchMinArea:    getEnvInt("SEARCH_MIN_AREA", 40),
		ChromeBin:        getEnv("CHROME_BIN", ""),

		RawDataDir:       getEnv("RAW_DATA_DIR", "./data/raw"),
		ProcessedDataDir: getEnv("PROCESSED_DATA_DIR", "./data/processed"),
		SummaryDir:       getEnv("SUMMARY_DIR", "./summary"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),

		Criteria: models.Criteria{
			MaxPrice:       getEnvFloat("MAX_PRICE", defaults.MaxPrice),
			MinArea:        getEnvFloat("MIN_AREA", defaults.MinArea),
			MaxDistanceKM:  getEnvFloat("MAX_DISTANCE_KM", defaults.MaxDistanceKM),
			MaxDurationMin: getEnvFloat("MAX_DURATION_MIN", defaults.MaxDurationMin),
			TopNSummary:    getEnvInt("TOP_N_SUMMARY", defaults.TopNSummary),
		},
		Floor: models.FloorModel{
			C0: getEnvFloat("FAKE_FLOOR_C0", floor.C0),
			K:  getEnvFloat("FAKE_FLOOR_K", floor.K),
			R:  getEnvFloat("FAKE_FLOOR_R", floor.R),
		},
		Center: models.Coordinates{
			Lat: getEnvFloat("CENTER_LAT", 52.2304944),
			Lon: getEnvFloat("CENTER_LON", 21.010445040894194),
		},

		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "flat-ranker/1.0"),
		RouterURL:         getEnv("ROUTER_URL", "http://router.project-osrm.org/route/v1/driving"),
		GeoConcurrency:    getEnvInt("GEO_CONCURRENCY", 1),
		GeoRateLimitMs:    getEnvInt("GEO_RATE_LIMIT_MS", 1000),
		GeoTimeout:        getEnvDuration("GEO_TIMEOUT", 10*time.Second),
	}

	if path := getEnv("CRITERIA_FILE", ""); path != "" {
		if err := cfg.ApplyCriteriaFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// criteriaFile is the YAML overlay layout. Absent keys keep their current value.
type criteriaFile struct {
	Criteria  *models.Criteria   `yaml:"criteria"`
	FakeFloor *models.FloorModel `yaml:"fake_floor"`
}

// ApplyCriteriaFile overlays the criteria and fake floor sections of a YAML file.
func (c *Config) ApplyCriteriaFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read criteria file %q: %w", path, err)
	}
	return c.applyCriteriaYAML(data)
}

func (c *Config) applyCriteriaYAML(data []byte) error {
	// Decode into copies of the current values so missing keys are kept.
	crit := c.Criteria
	floor := c.Floor
	file := criteriaFile{Criteria: &crit, FakeFloor: &floor}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse criteria yaml: %w", err)
	}
	if file.Criteria != nil {
		c.Criteria = *file.Criteria
	}
	if file.FakeFloor != nil {
		c.Floor = *file.FakeFloor
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
