package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Providers ProvidersConfig
	Scoring   ScoringConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProvidersConfig holds external data source configuration
type ProvidersConfig struct {
	BarcodeBaseURL  string           `mapstructure:"barcode_base_url"`
	RetailerSources []RetailerSource `mapstructure:"retailer_sources"`
}

// RetailerSource is one ordered retailer search endpoint. SearchURL carries
// a %s placeholder for the escaped query.
type RetailerSource struct {
	Name      string `mapstructure:"name"`
	SearchURL string `mapstructure:"search_url"`
	MaxHits   int    `mapstructure:"max_hits"`
}

// ScoringConfig holds the score calculator's tuning parameters. These are
// deliberate configuration, not hidden constants.
type ScoringConfig struct {
	DecayBase           float64                    `mapstructure:"decay_base"`
	CriticalCap         float64                    `mapstructure:"critical_cap"`
	UnknownPenaltyTop   float64                    `mapstructure:"unknown_penalty_top"`
	UnknownPenaltyTail  float64                    `mapstructure:"unknown_penalty_tail"`
	AllergenPenaltyTop  float64                    `mapstructure:"allergen_penalty_top"`
	AllergenPenaltyTail float64                    `mapstructure:"allergen_penalty_tail"`
	ToxicRiskImpact     float64                    `mapstructure:"toxic_risk_impact"`
	CautionRiskImpact   float64                    `mapstructure:"caution_risk_impact"`
	Weights             map[string]CategoryWeights `mapstructure:"weights"`
}

// CategoryWeights combines sub-scores into the total for one product
// category. The three weights must sum to 1.
type CategoryWeights struct {
	Safety      float64 `mapstructure:"safety"`
	Suitability float64 `mapstructure:"suitability"`
	Processing  float64 `mapstructure:"processing"`
}

// MatchingConfig holds ingredient matcher configuration
type MatchingConfig struct {
	EnableFuzzyMatching bool `mapstructure:"enable_fuzzy_matching"`
	FuzzyEditDistance   int  `mapstructure:"fuzzy_edit_distance"`
	EnableDebugLogging  bool `mapstructure:"enable_debug_logging"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory"
	TTL  time.Duration `mapstructure:"ttl"`
}

// StoreConfig holds the offline product store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pawlens/")

	v.SetEnvPrefix("PAWLENS")
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover the rest
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Provider defaults
	v.SetDefault("providers.barcode_base_url", "https://world.openfoodfacts.org")

	// Scoring defaults; see the score calculator for their roles
	v.SetDefault("scoring.decay_base", 0.8)
	v.SetDefault("scoring.critical_cap", 10.0)
	v.SetDefault("scoring.unknown_penalty_top", 6.0)
	v.SetDefault("scoring.unknown_penalty_tail", 2.0)
	v.SetDefault("scoring.allergen_penalty_top", 15.0)
	v.SetDefault("scoring.allergen_penalty_tail", 8.0)
	v.SetDefault("scoring.toxic_risk_impact", 60.0)
	v.SetDefault("scoring.caution_risk_impact", 10.0)
	v.SetDefault("scoring.weights.food.safety", 0.60)
	v.SetDefault("scoring.weights.food.suitability", 0.30)
	v.SetDefault("scoring.weights.food.processing", 0.10)
	v.SetDefault("scoring.weights.treat.safety", 0.60)
	v.SetDefault("scoring.weights.treat.suitability", 0.30)
	v.SetDefault("scoring.weights.treat.processing", 0.10)
	v.SetDefault("scoring.weights.grooming.safety", 0.50)
	v.SetDefault("scoring.weights.grooming.suitability", 0.40)
	v.SetDefault("scoring.weights.grooming.processing", 0.10)
	v.SetDefault("scoring.weights.supplement.safety", 0.55)
	v.SetDefault("scoring.weights.supplement.suitability", 0.35)
	v.SetDefault("scoring.weights.supplement.processing", 0.10)

	// Matching defaults
	v.SetDefault("matching.enable_fuzzy_matching", true)
	v.SetDefault("matching.fuzzy_edit_distance", 1)
	v.SetDefault("matching.enable_debug_logging", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	// Store defaults
	v.SetDefault("store.path", "pawlens.db")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Scoring.DecayBase <= 0 || config.Scoring.DecayBase >= 1 {
		return fmt.Errorf("scoring decay base must be in (0,1), got: %v", config.Scoring.DecayBase)
	}

	if config.Scoring.CriticalCap <= 0 || config.Scoring.CriticalCap > 100 {
		return fmt.Errorf("scoring critical cap must be in (0,100], got: %v", config.Scoring.CriticalCap)
	}

	for category, w := range config.Scoring.Weights {
		sum := w.Safety + w.Suitability + w.Processing
		if math.Abs(sum-1.0) > 0.001 {
			return fmt.Errorf("scoring weights for category %q must sum to 1, got: %v", category, sum)
		}
	}

	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	if config.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	return nil
}
