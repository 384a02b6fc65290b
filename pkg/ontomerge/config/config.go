// Package config loads ontomerge settings from YAML with environment
// overrides.
//
// Environment files are loaded before overrides are applied: ENV_FILE when
// set, otherwise .env.local and then .env. Variables already present in the
// process environment are never overwritten by a file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

// Backend kinds.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Labeler kinds.
const (
	LabelerRules = "rules"
	LabelerLLM   = "llm"
)

// Environment variables that override file settings.
const (
	EnvOntologyPath = "ONTOMERGE_ONTOLOGY_PATH"
	EnvLogLevel     = "ONTOMERGE_LOG_LEVEL"
	EnvAPIKey       = "OPENAI_API_KEY"
	EnvLLMBaseURL   = "ONTOMERGE_LLM_BASE_URL"
	EnvLLMModel     = "ONTOMERGE_LLM_MODEL"
	EnvReviewsDir   = "ONTOMERGE_REVIEWS_DIR"
)

// Config is the full ontomerge configuration.
type Config struct {
	Ontology OntologyConfig `yaml:"ontology"`
	Reviews  ReviewsConfig  `yaml:"reviews"`
	// Synonyms and Rules are optional data files; empty means built-in tables.
	Synonyms string        `yaml:"synonyms"`
	Rules    string        `yaml:"rules"`
	Labeler  LabelerConfig `yaml:"labeler"`
	Trend    TrendConfig   `yaml:"trend"`
	Log      logger.Config `yaml:"log"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// OntologyConfig selects the persistence backend.
type OntologyConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// ReviewsConfig locates daily review batches.
type ReviewsConfig struct {
	Dir string `yaml:"dir"`
}

// LabelerConfig selects and tunes the labeler.
type LabelerConfig struct {
	Kind        string        `yaml:"kind"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	Temperature float64       `yaml:"temperature"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TrendConfig holds trend report defaults.
type TrendConfig struct {
	Days   int    `yaml:"days"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Ontology: OntologyConfig{Backend: BackendJSON, Path: "data/ontology.json"},
		Reviews:  ReviewsConfig{Dir: "data/reviews"},
		Labeler: LabelerConfig{
			Kind:        LabelerRules,
			BaseURL:     "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			RPS:         1,
			Burst:       1,
			Timeout:     30 * time.Second,
		},
		Trend: TrendConfig{Days: 30, Output: "output/trend_report.csv"},
		Log:   logger.Config{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment overrides.
func Load(path string) (Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
		}
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFiles loads ENV_FILE, or .env.local and .env. Missing files are
// ignored.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Ontology.Path, EnvOntologyPath)
	set(&c.Log.Level, EnvLogLevel)
	set(&c.Labeler.APIKey, EnvAPIKey)
	set(&c.Labeler.BaseURL, EnvLLMBaseURL)
	set(&c.Labeler.Model, EnvLLMModel)
	set(&c.Reviews.Dir, EnvReviewsDir)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Ontology.Backend {
	case BackendJSON, BackendSQLite:
		if c.Ontology.Path == "" {
			return fmt.Errorf("ontology.path required for %s backend: %w", c.Ontology.Backend, internalerr.ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("ontology.backend %q: %w", c.Ontology.Backend, internalerr.ErrInvalidConfig)
	}

	switch c.Labeler.Kind {
	case LabelerRules:
	case LabelerLLM:
		if c.Labeler.BaseURL == "" || c.Labeler.Model == "" {
			return fmt.Errorf("labeler.base_url and labeler.model required for llm labeler: %w", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("labeler.kind %q: %w", c.Labeler.Kind, internalerr.ErrInvalidConfig)
	}

	if c.Trend.Days < 0 {
		return fmt.Errorf("trend.days %d: %w", c.Trend.Days, internalerr.ErrInvalidConfig)
	}
	return nil
}
