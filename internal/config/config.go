/*
PURPOSE:
  Defines the configuration structure and loading logic for Gauge Bench.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of input/output paths, concurrency and API endpoints.
  - API keys and base URLs are resolved once at process start.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support environment variable overrides (OPENAI_*, OPENROUTER_*, GAUGE_BENCH_*).
  - Components receive the resolved Config; nothing below this package reads the environment.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/consolidate
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config files fall back to defaults.
  - Validate() reports out-of-range values; APIKey() reports a missing key.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (conservative concurrency, 120s timeout).

USAGE:
  cfg, err := config.Load("gauge_bench.yaml")
  cfg.ApplyEnv(os.Getenv)

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/gauge-bench/internal/model"
)

// DefaultConcurrency bounds in-flight model requests per run.
const DefaultConcurrency = 4

// ErrMissingAPIKey is returned when the selected API family has no key.
var ErrMissingAPIKey = errors.New("missing API key")

// Endpoint holds connection settings for one API family.
type Endpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Config represents the full configuration for Gauge Bench.
type Config struct {
	GroundTruth     string        `yaml:"ground_truth"`
	ImagesDir       string        `yaml:"images_dir"`
	RunDir          string        `yaml:"run_dir"`
	LeaderboardFile string        `yaml:"leaderboard_file"`
	Concurrency     int           `yaml:"concurrency"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	// DefaultAPI is used by run when --api is absent, and by consolidate
	// for runs whose metadata is missing.
	DefaultAPI string `yaml:"default_api"`
	// StrictCommit makes consolidation skip run files without metadata.
	StrictCommit bool `yaml:"strict_commit"`
	// MaxTokens caps the reply length requested from the model.
	MaxTokens  int      `yaml:"max_tokens"`
	OpenAI     Endpoint `yaml:"openai"`
	OpenRouter Endpoint `yaml:"openrouter"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		GroundTruth:     "data/ground_truth.csv",
		ImagesDir:       "data/images",
		RunDir:          "results",
		LeaderboardFile: "leaderboard.csv",
		Concurrency:     DefaultConcurrency,
		RequestTimeout:  120 * time.Second,
		DefaultAPI:      model.APIOpenRouter,
		MaxTokens:       300,
		OpenAI: Endpoint{
			BaseURL: "https://api.openai.com/v1",
		},
		OpenRouter: Endpoint{
			BaseURL: "https://openrouter.ai/api/v1",
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		defaults := []string{"gauge_bench.yaml", "gauge-bench.yaml", ".gauge-bench.yaml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays environment settings. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("OPENAI_API_KEY")); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(getenv("OPENAI_BASE_URL")); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := strings.TrimSpace(getenv("OPENROUTER_API_KEY")); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := strings.TrimSpace(getenv("OPENROUTER_BASE_URL")); v != "" {
		c.OpenRouter.BaseURL = v
	}
	if v := strings.TrimSpace(getenv("GAUGE_BENCH_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if _, err := c.Endpoint(c.DefaultAPI); err != nil {
		return fmt.Errorf("default_api: %w", err)
	}
	if strings.TrimSpace(c.RunDir) == "" {
		return fmt.Errorf("run_dir must not be empty")
	}
	if strings.ContainsAny(c.LeaderboardFile, `/\`) || c.LeaderboardFile == "" {
		return fmt.Errorf("leaderboard_file must be a plain file name, got %q", c.LeaderboardFile)
	}
	return nil
}

// Endpoint returns the settings for an API family.
func (c *Config) Endpoint(api string) (Endpoint, error) {
	switch api {
	case model.APIOpenAI:
		return c.OpenAI, nil
	case model.APIOpenRouter:
		return c.OpenRouter, nil
	}
	return Endpoint{}, fmt.Errorf("unsupported api %q (want %s or %s)", api, model.APIOpenAI, model.APIOpenRouter)
}

// APIKey returns the key for an API family or ErrMissingAPIKey.
func (c *Config) APIKey(api string) (string, error) {
	ep, err := c.Endpoint(api)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(ep.APIKey) == "" {
		return "", fmt.Errorf("%w for %s (set %s_API_KEY)", ErrMissingAPIKey, api, strings.ToUpper(api))
	}
	return ep.APIKey, nil
}
