// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PortalAPIKey authenticates against the paid listings API. Empty
	// disables the portal adapter.
	PortalAPIKey string `koanf:"portal_api_key"`

	// PortalBaseURL overrides the listings API endpoint.
	PortalBaseURL string `koanf:"portal_base_url"`

	// PortalMonthlyCap is the hard monthly budget of portal API calls.
	PortalMonthlyCap int `koanf:"portal_monthly_cap"`

	// PortalPageLimit caps results per portal request.
	PortalPageLimit int `koanf:"portal_page_limit"`

	// LedgerPath locates the budget ledger database file.
	LedgerPath string `koanf:"ledger_path"`

	// ScrapeBaseURL overrides the scrape target.
	ScrapeBaseURL string `koanf:"scrape_base_url"`

	// CacheTTLSeconds is the listing cache freshness window.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheSnapshotPath locates the persistent cache file. Empty disables
	// persistence.
	CacheSnapshotPath string `koanf:"cache_snapshot_path"`

	// MinRequestIntervalSeconds spaces consecutive upstream requests.
	MinRequestIntervalSeconds int `koanf:"min_request_interval_seconds"`

	// AIProvider selects the analysis backend: claude or openai.
	AIProvider string `koanf:"ai_provider"`

	// AIModel overrides the provider's default model.
	AIModel string `koanf:"ai_model"`

	// AIAPIKey authenticates analysis calls. Empty disables AI analysis.
	AIAPIKey string `koanf:"ai_api_key"`

	// AITopN is how many listings per refresh get an analysis call.
	AITopN int `koanf:"ai_top_n"`

	// AIWorkers bounds concurrent analysis calls.
	AIWorkers int `koanf:"ai_workers"`

	// AICacheTTLSeconds is the analysis result cache window.
	AICacheTTLSeconds int `koanf:"ai_cache_ttl_seconds"`

	// ScoreWorkers sets the number of scoring workers.
	ScoreWorkers int `koanf:"score_workers"`

	// MaxReturn caps listings returned per request.
	MaxReturn int `koanf:"max_return"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		Addr:                      ":8080",
		PortalMonthlyCap:          50,
		PortalPageLimit:           500,
		LedgerPath:                "data/api_budget.db",
		CacheTTLSeconds:           604800,
		CacheSnapshotPath:         "data/listings_cache.json",
		MinRequestIntervalSeconds: 5,
		AIProvider:                "claude",
		AITopN:                    20,
		AIWorkers:                 10,
		AICacheTTLSeconds:         3600,
		ScoreWorkers:              runtime.NumCPU() * 2,
		MaxReturn:                 200,
	}
}
