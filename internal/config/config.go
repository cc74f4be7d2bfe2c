package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// DefaultPath is the configuration file consulted when --config is not given.
const DefaultPath = "webbuilder.yaml"

// Config is the explicit runtime configuration handed to the orchestrator.
type Config struct {
	Paths         PathsConfig         `yaml:"paths"`
	Models        ModelsConfig        `yaml:"models"`
	Budgets       BudgetsConfig       `yaml:"budgets"`
	Retry         RetryConfig         `yaml:"retry"`
	Helpers       HelpersConfig       `yaml:"helpers"`
	Parallel      ParallelConfig      `yaml:"parallel"`
	Observability ObservabilityConfig `yaml:"observability"`
	Deploy        DeployConfig        `yaml:"deploy"`
	Review        ReviewConfig        `yaml:"review"`
	Logging       LoggingConfig       `yaml:"logging"`
	// Environment variable holding the generation service API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// PathsConfig locates project inputs and outputs. Relative entries resolve against Root.
type PathsConfig struct {
	Root                string `yaml:"root"`
	Briefs              string `yaml:"briefs"`
	Presets             string `yaml:"presets"`
	Taxonomy            string `yaml:"taxonomy"`
	Templates           string `yaml:"templates"`
	AnimationComponents string `yaml:"animation_components"`
	Output              string `yaml:"output"`
	Helpers             string `yaml:"helpers"`
}

// ModelsConfig selects the generation model per stage.
type ModelsConfig struct {
	Scaffold string `yaml:"scaffold"`
	Section  string `yaml:"section"`
	Review   string `yaml:"review"`
}

// BudgetsConfig holds output token budgets per stage.
type BudgetsConfig struct {
	Scaffold int `yaml:"scaffold"`
	Section  int `yaml:"section"`
	Review   int `yaml:"review"`
	// Minimum section budget when a pinned/scrubbed scroll pattern is detected.
	PinnedFloor int `yaml:"pinned_floor"`
}

// RetryConfig tunes the retrying call client.
type RetryConfig struct {
	MaxAttempts int              `yaml:"max_attempts"`
	Base        time.Duration    `yaml:"base"`
	MaxDelay    time.Duration    `yaml:"max_delay"`
	Timeout     time.Duration    `yaml:"timeout"`
	Backoff     RetryBackoffMode `yaml:"backoff"`
}

// HelpersConfig controls helper subprocess invocation.
type HelpersConfig struct {
	Node              string        `yaml:"node"`
	ContextTimeout    time.Duration `yaml:"context_timeout"`
	SmallTimeout      time.Duration `yaml:"small_timeout"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout"`
	BriefTimeout      time.Duration `yaml:"brief_timeout"`
	// Site spec building and pattern identification.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`
	InstallTimeout  time.Duration `yaml:"install_timeout"`
}

// ParallelConfig selects the section scheduling model.
type ParallelConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxWorkers int  `yaml:"max_workers"`
}

// ObservabilityConfig wires the optional event log, metrics export and fan-out.
// Empty paths or URLs disable the corresponding sink.
type ObservabilityConfig struct {
	EventStorePath   string        `yaml:"event_store_path"`
	MetricsTextfile  string        `yaml:"metrics_textfile"`
	NATSURL          string        `yaml:"nats_url"`
	NATSSubject      string        `yaml:"nats_subject"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// DeployConfig controls the deploy stage side effects.
type DeployConfig struct {
	Install     bool `yaml:"install"`
	GitSnapshot bool `yaml:"git_snapshot"`
}

// ReviewConfig selects the validator used by the review stage.
type ReviewConfig struct {
	Mode ReviewMode `yaml:"mode"`
}

// LoggingConfig mirrors the CLI logging switches.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads configPath (if present), expands environment references and applies defaults.
// A missing file is not an error: the defaults describe a complete configuration.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := Defaults()
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("Configuration file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Build()
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
				WithContext("path", configPath).Build()
		}
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env and .env.local; existing process variables win.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "path", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", name)
	}
}

// APIKey resolves the generation service key from the configured environment variable.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.APIKeyEnv)
	if key == "" {
		return "", ferrors.AuthError(fmt.Sprintf("%s is not set", c.APIKeyEnv)).
			WithContext("env", c.APIKeyEnv).Build()
	}
	return key, nil
}
