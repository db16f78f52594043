package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/careplan-backend/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got yaml kind %d", value.Kind)
	}
	if value.Tag == "!!int" {
		n, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

const defaultModel = "gpt-4-turbo-preview"

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":3001",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			AllowedOrigins:    []string{"http://localhost:3000"},
		},
		Engine: EngineConfig{
			Type:    "openai",
			Timeout: Duration{Duration: 30 * time.Second},
		},
		Endpoints: EndpointsConfig{
			CarePlan: EndpointConfig{Model: defaultModel, Temperature: 0.7, MaxTokens: 2000},
			Quality:  EndpointConfig{Model: defaultModel, Temperature: 0.3, MaxTokens: 1000, JSON: true},
			Research: EndpointConfig{Model: defaultModel, Temperature: 0.5, MaxTokens: 1500},
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     Duration{Duration: time.Hour},
		},
		RateLimit: RateLimitConfig{
			Backend:     "memory",
			Window:      Duration{Duration: 15 * time.Minute},
			MaxRequests: 100,
		},
		Research: ResearchConfig{
			Enabled:          true,
			PubMedBaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			ClinicalTrialURL: "https://clinicaltrials.gov/api/query/study_fields",
			MaxResults:       5,
			Timeout:          Duration{Duration: 10 * time.Second},
		},
	}
}

// Load builds the configuration from defaults, an optional JSON/YAML file and the environment.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("CAREPLAN_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
				p := filepath.Join(wd, "config", name)
				if _, err := os.Stat(p); err == nil {
					cfgPath = p
					break
				}
			}
		}
	}
	if cfgPath != "" {
		if err := loadFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Fields absent from the file keep their defaults.
func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v, ok := envutil.String("LOG_MODE"); ok {
		cfg.Env = v
	}
	if v, ok := envutil.String("PORT"); ok {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := envutil.List("ALLOWED_ORIGINS"); ok {
		cfg.HTTP.AllowedOrigins = v
	}
	if v, ok := envutil.List("TRUSTED_PROXIES"); ok {
		cfg.HTTP.TrustedProxies = v
	}
	if v, ok := envutil.String("OPENAI_API_KEY"); ok {
		cfg.Engine.APIKey = v
	}
	if v, ok := envutil.String("OPENAI_BASE_URL"); ok {
		cfg.Engine.BaseURL = v
	}
	if v, ok := envutil.String("CAREPLAN_ENGINE"); ok {
		cfg.Engine.Type = v
	}
	if v, ok := envutil.String("REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := envutil.Raw("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
	if v, ok := envutil.Int("REDIS_DB"); ok {
		cfg.Redis.DB = v
	}
	if v, ok := envutil.String("CAREPLAN_CACHE_BACKEND"); ok {
		cfg.Cache.Backend = v
	}
	if v, ok := envutil.Duration("CAREPLAN_CACHE_TTL"); ok {
		cfg.Cache.TTL = Duration{Duration: v}
	}
	if v, ok := envutil.Bool("CAREPLAN_SINGLE_FLIGHT"); ok {
		cfg.Cache.SingleFlight = v
	}
	if v, ok := envutil.String("CAREPLAN_RATELIMIT_BACKEND"); ok {
		cfg.RateLimit.Backend = v
	}
	if v, ok := envutil.Duration("CAREPLAN_RATELIMIT_WINDOW"); ok {
		cfg.RateLimit.Window = Duration{Duration: v}
	}
	if v, ok := envutil.Int("CAREPLAN_RATELIMIT_MAX"); ok {
		cfg.RateLimit.MaxRequests = v
	}
	if v, ok := envutil.Bool("METRICS_ENABLED"); ok {
		cfg.Metrics = v
	}
	if v, ok := envutil.String("PUBMED_API_KEY"); ok {
		cfg.Research.PubMedAPIKey = v
	}
	if v, ok := envutil.Bool("CAREPLAN_RESEARCH_ENABLED"); ok {
		cfg.Research.Enabled = v
	}
}

func normalize(cfg *Config) error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":3001"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	for _, p := range cfg.HTTP.TrustedProxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("invalid http.trusted_proxies entry %q", p)
		}
	}

	e := &cfg.Engine
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	e.APIKey = strings.TrimSpace(e.APIKey)
	if e.Timeout.Duration <= 0 {
		e.Timeout = Duration{Duration: 30 * time.Second}
	}
	switch e.Type {
	case "", "openai":
		e.Type = "openai"
		if e.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required")
		}
	case "openai_http", "oai_http":
		e.Type = "oai_http"
		if e.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required")
		}
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com"
		}
		if strings.TrimSpace(e.ChatCompletionsPath) == "" {
			e.ChatCompletionsPath = "/v1/chat/completions"
		}
	case "mock":
	default:
		return fmt.Errorf("invalid engine.type=%q", e.Type)
	}

	for name, ep := range map[string]*EndpointConfig{
		"care_plan": &cfg.Endpoints.CarePlan,
		"quality":   &cfg.Endpoints.Quality,
		"research":  &cfg.Endpoints.Research,
	} {
		ep.Model = strings.TrimSpace(ep.Model)
		if ep.Model == "" {
			ep.Model = defaultModel
		}
		if ep.MaxTokens <= 0 {
			return fmt.Errorf("endpoints.%s.max_tokens must be positive", name)
		}
		if ep.Temperature < 0 || ep.Temperature > 2 {
			return fmt.Errorf("endpoints.%s.temperature out of range", name)
		}
	}

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL.Duration <= 0 {
		cfg.Cache.TTL = Duration{Duration: time.Hour}
	}
	cfg.RateLimit.Backend = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.Window.Duration <= 0 {
		cfg.RateLimit.Window = Duration{Duration: 15 * time.Minute}
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = 100
	}
	for _, b := range []struct{ name, value string }{
		{"cache.backend", cfg.Cache.Backend},
		{"rate_limit.backend", cfg.RateLimit.Backend},
	} {
		switch b.value {
		case "memory":
		case "redis":
			if strings.TrimSpace(cfg.Redis.Addr) == "" {
				return fmt.Errorf("%s=redis requires REDIS_ADDR", b.name)
			}
		default:
			return fmt.Errorf("invalid %s=%q", b.name, b.value)
		}
	}

	if cfg.Research.MaxResults <= 0 {
		cfg.Research.MaxResults = 5
	}
	if cfg.Research.Timeout.Duration <= 0 {
		cfg.Research.Timeout = Duration{Duration: 10 * time.Second}
	}
	cfg.Research.PubMedBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Research.PubMedBaseURL), "/")
	cfg.Research.ClinicalTrialURL = strings.TrimSpace(cfg.Research.ClinicalTrialURL)
	return nil
}
