package config

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("environment = %q, want development", cfg.Server.Environment)
	}
	if cfg.Providers.BarcodeBaseURL == "" {
		t.Error("barcode base URL default missing")
	}
	if cfg.Scoring.DecayBase != 0.8 {
		t.Errorf("decay base = %v, want 0.8", cfg.Scoring.DecayBase)
	}
	if cfg.Scoring.CriticalCap != 10 {
		t.Errorf("critical cap = %v, want 10", cfg.Scoring.CriticalCap)
	}
	if !cfg.Matching.EnableFuzzyMatching {
		t.Error("fuzzy matching should default on")
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("cache TTL = %v, want 24h", cfg.Cache.TTL)
	}
	if cfg.Store.Path == "" {
		t.Error("store path default missing")
	}
	if cfg.RateLimit.PerIP != 100 {
		t.Errorf("per-ip rate limit = %d, want 100", cfg.RateLimit.PerIP)
	}

	for _, category := range []string{"food", "treat", "grooming", "supplement"} {
		w, ok := cfg.Scoring.Weights[category]
		if !ok {
			t.Errorf("missing weights for category %q", category)
			continue
		}
		if sum := w.Safety + w.Suitability + w.Processing; math.Abs(sum-1.0) > 0.001 {
			t.Errorf("weights for %q sum to %v, want 1", category, sum)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			DecayBase:   0.8,
			CriticalCap: 10,
			Weights: map[string]CategoryWeights{
				"food": {Safety: 0.6, Suitability: 0.3, Processing: 0.1},
			},
		},
		Cache: CacheConfig{Type: "memory", TTL: time.Hour},
		Store: StoreConfig{Path: "pawlens.db"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "decay base too high",
			mutate:  func(c *Config) { c.Scoring.DecayBase = 1.0 },
			wantErr: "decay base",
		},
		{
			name:    "decay base non-positive",
			mutate:  func(c *Config) { c.Scoring.DecayBase = 0 },
			wantErr: "decay base",
		},
		{
			name:    "critical cap out of range",
			mutate:  func(c *Config) { c.Scoring.CriticalCap = 150 },
			wantErr: "critical cap",
		},
		{
			name: "weights do not sum to one",
			mutate: func(c *Config) {
				c.Scoring.Weights["food"] = CategoryWeights{Safety: 0.5, Suitability: 0.3, Processing: 0.1}
			},
			wantErr: "must sum to 1",
		},
		{
			name:    "unsupported cache type",
			mutate:  func(c *Config) { c.Cache.Type = "redis" },
			wantErr: "cache type",
		},
		{
			name:    "missing store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "store path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}
