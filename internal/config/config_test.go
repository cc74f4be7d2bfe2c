package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Retry.Base)
	assert.Equal(t, 90*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 8192, cfg.Budgets.PinnedFloor)
	assert.Equal(t, DefaultModel, cfg.Models.Section)
}

func TestLoadPartialOverrides(t *testing.T) {
	path := writeConfig(t, `
paths:
  root: /srv/site
budgets:
  section: 6000
retry:
  max_attempts: 5
  base: 250ms
  backoff: LINEAR
parallel:
  enabled: true
deploy:
  install: false
logging:
  level: WARNING
  format: JSON
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/site", cfg.Paths.Root)
	assert.Equal(t, "briefs", cfg.Paths.Briefs)
	assert.Equal(t, 6000, cfg.Budgets.Section)
	assert.Equal(t, 2048, cfg.Budgets.Scaffold)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Base)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	assert.True(t, cfg.Parallel.Enabled)
	assert.Equal(t, 4, cfg.Parallel.MaxWorkers)
	assert.False(t, cfg.Deploy.Install)
	assert.True(t, cfg.Deploy.GitSnapshot)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("WB_TEST_OUTPUT", "/tmp/wb-out")
	path := writeConfig(t, "paths:\n  output: ${WB_TEST_OUTPUT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/wb-out", cfg.Paths.OutputDir())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative budget", "budgets:\n  review: -1\n"},
		{"zero attempts", "retry:\n  max_attempts: -2\n"},
		{"unknown backoff", "retry:\n  backoff: random\n"},
		{"unknown log level", "logging:\n  level: loud\n"},
		{"unknown review mode", "review:\n  mode: vibes\n"},
		{"malformed yaml", "budgets: [1, 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig), "expected config category, got %v", err)
		})
	}
}

func TestAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.APIKeyEnv = "WB_TEST_API_KEY"

	t.Setenv("WB_TEST_API_KEY", "")
	_, err := cfg.APIKey()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryAuth))

	t.Setenv("WB_TEST_API_KEY", "sk-test")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestProjectPaths(t *testing.T) {
	p := Defaults().Paths
	p.Root = "/work"

	assert.Equal(t, "/work/briefs/acme.md", p.BriefFile("acme"))
	assert.Equal(t, "/work/skills/presets/saas.md", p.PresetFile("saas"))
	assert.Equal(t, "/work/output/acme", p.ProjectDir("acme"))
	assert.Equal(t, "/work/output/extractions/acme-1a2b3c4d", p.ExtractionDir("acme-1a2b3c4d"))
	assert.Equal(t, "/work/templates/section-instructions-gsap.md", p.TemplateFile("section-instructions-gsap.md"))
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff(" Exp "))
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff("constant"))
	assert.Empty(t, NormalizeRetryBackoff("jittered"))

	assert.Equal(t, LogLevelInfo, NormalizeLogLevel(""))
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("WARNING"))
	assert.Empty(t, NormalizeLogLevel("trace"))

	assert.Equal(t, ReviewModeAuto, NormalizeReviewMode(""))
	assert.Equal(t, ReviewModeJudgment, NormalizeReviewMode("Judgement"))
	assert.Equal(t, ReviewModeDeterministic, NormalizeReviewMode("deterministic"))

	assert.Equal(t, LogFormatJSON, NormalizeLogFormat(" json"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("logfmt"))
}

func TestReviewModeIsNormalizedOnLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "review:\n  mode: Judgment\n"))
	require.NoError(t, err)
	assert.Equal(t, ReviewModeJudgment, cfg.Review.Mode)
}
