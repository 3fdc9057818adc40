// Package config defines service configuration and its layered loader.
//
// Both binaries read the same Config; each uses the fields it needs.
package config

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log output.
	LogFormat string `koanf:"log_format"`

	// Addr is the Recommendation Service listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// EstimatorAddr is the Revenue Estimator listen address.
	EstimatorAddr string `koanf:"estimator_addr"`

	// ServiceName is echoed by the recommender's root health route.
	ServiceName string `koanf:"service_name"`

	// ArtifactDir is the base for relative artifact paths.
	ArtifactDir string `koanf:"artifact_dir"`

	// ModelPath and CatalogPath locate the recommender artifacts.
	ModelPath   string `koanf:"model_path"`
	CatalogPath string `koanf:"catalog_path"`

	// RevenueModelPath and FeaturesPath locate the estimator artifacts.
	RevenueModelPath string `koanf:"revenue_model_path"`
	FeaturesPath     string `koanf:"features_path"`

	// TopN is the number of titles returned per request.
	TopN int `koanf:"top_n"`

	// RecommendTimeoutMS bounds one scoring pass.
	RecommendTimeoutMS int `koanf:"recommend_timeout_ms"`

	// ScoringWorkers and ScoringChunkSize control the scoring fan-out.
	ScoringWorkers   int `koanf:"scoring_workers"`
	ScoringChunkSize int `koanf:"scoring_chunk_size"`

	// SerializeScoring wraps the scorer in a mutex.
	SerializeScoring bool `koanf:"serialize_scoring"`

	// ExcludeInteracted drops items the user already rated from candidates.
	ExcludeInteracted bool `koanf:"exclude_interacted"`

	// CacheSize caps the recommendation result cache; 0 disables it.
	CacheSize int `koanf:"cache_size"`

	// RateLimitRequests per RateLimitWindowSec per client IP; 0 disables.
	RateLimitRequests  int `koanf:"rate_limit_requests"`
	RateLimitWindowSec int `koanf:"rate_limit_window_sec"`

	// CORSAllowedOrigins lists origins allowed to call the HTTP APIs.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8000",
		EstimatorAddr:      ":8501",
		ServiceName:        "GoodReads Recommender API",
		ArtifactDir:        ".",
		ModelPath:          "svd_goodreads_model.json",
		CatalogPath:        "book_id_to_title.json",
		RevenueModelPath:   "movie_revenue_model.json",
		FeaturesPath:       "model_features.json",
		TopN:               10,
		RecommendTimeoutMS: 2_000,
		ScoringWorkers:     runtime.NumCPU(),
		ScoringChunkSize:   2_048,
		CacheSize:          10_000,
		RateLimitRequests:  600,
		RateLimitWindowSec: 60,
		CORSAllowedOrigins: []string{},
	}
}

// Resolve joins p onto ArtifactDir unless p is already absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.ArtifactDir == "" {
		return p
	}
	return filepath.Join(c.ArtifactDir, p)
}

// RecommendTimeout returns RecommendTimeoutMS as a duration.
func (c *Config) RecommendTimeout() time.Duration {
	return time.Duration(c.RecommendTimeoutMS) * time.Millisecond
}

// RateLimitWindow returns RateLimitWindowSec as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}
