package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"ENCORE_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"ENCORE_DB_MAX_CONNS" default:"8"`

	// Fuzzy matching. Thresholds are percentages in [0,100]; both the artist
	// and name bar must clear independently for a classification to apply.
	FuzzyWindowHours      int     `envconfig:"ENCORE_FUZZY_WINDOW_HOURS" default:"24"`
	FuzzyCandidateFloor   float64 `envconfig:"ENCORE_FUZZY_CANDIDATE_FLOOR" default:"50"`
	DuplicateArtistSim    float64 `envconfig:"ENCORE_DUPLICATE_ARTIST_SIM" default:"90"`
	DuplicateNameSim      float64 `envconfig:"ENCORE_DUPLICATE_NAME_SIM" default:"85"`
	ReviewArtistSim       float64 `envconfig:"ENCORE_REVIEW_ARTIST_SIM" default:"75"`
	ReviewNameSim         float64 `envconfig:"ENCORE_REVIEW_NAME_SIM" default:"70"`
	FuzzyCandidateScanCap int     `envconfig:"ENCORE_FUZZY_SCAN_CAP" default:"500"`

	DefaultPageSize    int    `envconfig:"ENCORE_DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize        int    `envconfig:"ENCORE_MAX_PAGE_SIZE" default:"100"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("ENCORE_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("ENCORE_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("ENCORE_DB_MIN_CONNS (%d) cannot exceed ENCORE_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.FuzzyWindowHours < 1 {
		return fmt.Errorf("ENCORE_FUZZY_WINDOW_HOURS must be >= 1")
	}
	for name, value := range map[string]float64{
		"ENCORE_FUZZY_CANDIDATE_FLOOR": c.FuzzyCandidateFloor,
		"ENCORE_DUPLICATE_ARTIST_SIM":  c.DuplicateArtistSim,
		"ENCORE_DUPLICATE_NAME_SIM":    c.DuplicateNameSim,
		"ENCORE_REVIEW_ARTIST_SIM":     c.ReviewArtistSim,
		"ENCORE_REVIEW_NAME_SIM":       c.ReviewNameSim,
	} {
		if value < 0 || value > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if c.ReviewArtistSim > c.DuplicateArtistSim {
		return fmt.Errorf("ENCORE_REVIEW_ARTIST_SIM cannot exceed ENCORE_DUPLICATE_ARTIST_SIM")
	}
	if c.ReviewNameSim > c.DuplicateNameSim {
		return fmt.Errorf("ENCORE_REVIEW_NAME_SIM cannot exceed ENCORE_DUPLICATE_NAME_SIM")
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("ENCORE_DEFAULT_PAGE_SIZE must be >= 1")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("ENCORE_MAX_PAGE_SIZE (%d) cannot be below ENCORE_DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
