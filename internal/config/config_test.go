package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 8, c.Crawler.MaxWorkers)
	assert.Equal(t, 1, c.Crawler.Retries)
	assert.Equal(t, 10*time.Second, c.Crawler.Timeout)
	assert.Equal(t, 120*time.Second, c.Audit.Deadline)
	assert.Equal(t, 20.0, c.Scoring.Weights.Critical)
	assert.Equal(t, 10.0, c.Scoring.Weights.High)
	assert.Equal(t, 5.0, c.Scoring.Weights.Medium)
	assert.Equal(t, 2.0, c.Scoring.Weights.Low)
	assert.Equal(t, 5, c.Scoring.PageCap)
	assert.Equal(t, 300, c.Analyzer.ThinContentWords)
	assert.Equal(t, "text", c.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
crawler:
  max_workers: 3
  timeout: 2s
scoring:
  weights:
    critical: 25
logging:
  format: json
`), 0o644)
	require.NoError(t, err)

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 3, c.Crawler.MaxWorkers)
	assert.Equal(t, 2*time.Second, c.Crawler.Timeout)
	assert.Equal(t, 25.0, c.Scoring.Weights.Critical)
	assert.Equal(t, 10.0, c.Scoring.Weights.High)
	assert.Equal(t, "json", c.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AUDITSMITH_CRAWLER_MAX_WORKERS", "2")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Crawler.MaxWorkers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no workers", func(c *Config) { c.Crawler.MaxWorkers = 0 }},
		{"negative retries", func(c *Config) { c.Crawler.Retries = -1 }},
		{"zero deadline", func(c *Config) { c.Audit.Deadline = 0 }},
		{"zero page cap", func(c *Config) { c.Scoring.PageCap = 0 }},
		{"negative weight", func(c *Config) { c.Scoring.Weights.Low = -1 }},
		{"alt threshold above one", func(c *Config) { c.Analyzer.AltCoverageThreshold = 1.5 }},
		{"zero similarity", func(c *Config) { c.Analyzer.DuplicateSimilarity = 0 }},
		{"inverted buckets", func(c *Config) { c.Impact.SmallImprovement = 50 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
