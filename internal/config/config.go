package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`

	// AllowedOrigins is the CORS allow-list. Cross-origin callers may only POST or GET.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`

	// TrustedProxies are the peers (IPs or CIDRs) whose X-Forwarded-For is believed when
	// resolving the client address. Empty means the socket address is always used.
	TrustedProxies []string `json:"trusted_proxies,omitempty" yaml:"trusted_proxies,omitempty"`
}

type EngineConfig struct {
	// Type is one of "openai", "oai_http" or "mock".
	Type string `json:"type" yaml:"type"`

	BaseURL             string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey              string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	ChatCompletionsPath string   `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty"`
	Timeout             Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// EndpointConfig holds the fixed upstream parameters of one gateway operation.
type EndpointConfig struct {
	Model       string  `json:"model" yaml:"model"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	JSON        bool    `json:"json,omitempty" yaml:"json,omitempty"`
}

type EndpointsConfig struct {
	CarePlan EndpointConfig `json:"care_plan" yaml:"care_plan"`
	Quality  EndpointConfig `json:"quality" yaml:"quality"`
	Research EndpointConfig `json:"research" yaml:"research"`
}

type CacheConfig struct {
	Backend      string   `json:"backend" yaml:"backend"`
	TTL          Duration `json:"ttl" yaml:"ttl"`
	SingleFlight bool     `json:"single_flight" yaml:"single_flight"`
}

type RateLimitConfig struct {
	Backend     string   `json:"backend" yaml:"backend"`
	Window      Duration `json:"window" yaml:"window"`
	MaxRequests int      `json:"max_requests" yaml:"max_requests"`
}

type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
}

type ResearchConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	PubMedBaseURL    string   `json:"pubmed_base_url" yaml:"pubmed_base_url"`
	PubMedAPIKey     string   `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty"`
	ClinicalTrialURL string   `json:"clinical_trials_url" yaml:"clinical_trials_url"`
	MaxResults       int      `json:"max_results" yaml:"max_results"`
	Timeout          Duration `json:"timeout" yaml:"timeout"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Endpoints EndpointsConfig `json:"endpoints" yaml:"endpoints"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Research  ResearchConfig  `json:"research" yaml:"research"`
	Metrics   bool            `json:"metrics_enabled" yaml:"metrics_enabled"`
}
