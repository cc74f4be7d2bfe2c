package config

import "time"

// DefaultModel is used for every stage unless overridden.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Defaults returns a fully populated configuration.
func Defaults() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:                ".",
			Briefs:              "briefs",
			Presets:             "skills/presets",
			Taxonomy:            "skills/section-taxonomy.md",
			Templates:           "templates",
			AnimationComponents: "skills/animation-components",
			Output:              "output",
			Helpers:             "scripts/quality",
		},
		Models: ModelsConfig{
			Scaffold: DefaultModel,
			Section:  DefaultModel,
			Review:   DefaultModel,
		},
		Budgets: BudgetsConfig{
			Scaffold:    2048,
			Section:     4096,
			Review:      4096,
			PinnedFloor: 8192,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Base:        5 * time.Second,
			MaxDelay:    60 * time.Second,
			Timeout:     90 * time.Second,
			Backoff:     RetryBackoffExponential,
		},
		Helpers: HelpersConfig{
			Node:              "node",
			ContextTimeout:    30 * time.Second,
			SmallTimeout:      10 * time.Second,
			ExtractionTimeout: 300 * time.Second,
			BriefTimeout:      120 * time.Second,
			AnalysisTimeout:   60 * time.Second,
			InstallTimeout:    120 * time.Second,
		},
		Parallel: ParallelConfig{
			Enabled:    false,
			MaxWorkers: 4,
		},
		Observability: ObservabilityConfig{
			EventStorePath:   "output/events.db",
			NATSSubject:      "webbuilder.events",
			ProgressInterval: 15 * time.Second,
		},
		Deploy: DeployConfig{
			Install:     true,
			GitSnapshot: true,
		},
		Review:    ReviewConfig{Mode: ReviewModeAuto},
		Logging:   LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		APIKeyEnv: "ANTHROPIC_API_KEY",
	}
}

// applyDefaults fills zero values left by a partial YAML document and canonicalizes enums.
func applyDefaults(cfg *Config) {
	d := Defaults()

	p := &cfg.Paths
	fill(&p.Root, d.Paths.Root)
	fill(&p.Briefs, d.Paths.Briefs)
	fill(&p.Presets, d.Paths.Presets)
	fill(&p.Taxonomy, d.Paths.Taxonomy)
	fill(&p.Templates, d.Paths.Templates)
	fill(&p.AnimationComponents, d.Paths.AnimationComponents)
	fill(&p.Output, d.Paths.Output)
	fill(&p.Helpers, d.Paths.Helpers)

	fill(&cfg.Models.Scaffold, d.Models.Scaffold)
	fill(&cfg.Models.Section, d.Models.Section)
	fill(&cfg.Models.Review, d.Models.Review)

	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = d.Retry.Backoff
	} else if m := NormalizeRetryBackoff(string(cfg.Retry.Backoff)); m != "" {
		cfg.Retry.Backoff = m
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = d.Retry.MaxDelay
	}

	fill(&cfg.Helpers.Node, d.Helpers.Node)
	if cfg.Helpers.ContextTimeout <= 0 {
		cfg.Helpers.ContextTimeout = d.Helpers.ContextTimeout
	}
	if cfg.Helpers.SmallTimeout <= 0 {
		cfg.Helpers.SmallTimeout = d.Helpers.SmallTimeout
	}
	if cfg.Helpers.ExtractionTimeout <= 0 {
		cfg.Helpers.ExtractionTimeout = d.Helpers.ExtractionTimeout
	}
	if cfg.Helpers.BriefTimeout <= 0 {
		cfg.Helpers.BriefTimeout = d.Helpers.BriefTimeout
	}
	if cfg.Helpers.AnalysisTimeout <= 0 {
		cfg.Helpers.AnalysisTimeout = d.Helpers.AnalysisTimeout
	}
	if cfg.Helpers.InstallTimeout <= 0 {
		cfg.Helpers.InstallTimeout = d.Helpers.InstallTimeout
	}

	if cfg.Parallel.MaxWorkers <= 0 {
		cfg.Parallel.MaxWorkers = d.Parallel.MaxWorkers
	}
	if cfg.Observability.ProgressInterval <= 0 {
		cfg.Observability.ProgressInterval = d.Observability.ProgressInterval
	}
	fill(&cfg.Observability.NATSSubject, d.Observability.NATSSubject)

	if m := NormalizeReviewMode(string(cfg.Review.Mode)); m != "" {
		cfg.Review.Mode = m
	}
	if l := NormalizeLogLevel(string(cfg.Logging.Level)); l != "" {
		cfg.Logging.Level = l
	}
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	fill(&cfg.APIKeyEnv, d.APIKeyEnv)
}

func fill(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
