package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"LLM_PROVIDER", "LLM_TEMPERATURE", "LLM_MAX_TOKENS", "SECTION_CONCURRENCY", "EXCERPT_RUNES", "STORE_DRIVER", "RUN_TTL", "REFERENCE_DIR"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.InDelta(t, 0.7, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 4000, cfg.LLMMaxTokens)
	assert.Equal(t, 1, cfg.SectionConcurrency)
	assert.Equal(t, 2000, cfg.ExcerptRunes)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.RunTTL)
	assert.Equal(t, "uploads", cfg.ReferenceDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("SECTION_CONCURRENCY", "-3")
	t.Setenv("RUN_TTL", "90m")

	cfg := Load()
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 1, cfg.SectionConcurrency, "non-positive concurrency falls back to sequential")
	assert.Equal(t, 90*time.Minute, cfg.RunTTL)
}

func TestValidate(t *testing.T) {
	base := Config{
		APIKey:       "k",
		LLMProvider:  "openai",
		OpenAIAPIKey: "sk",
		StoreDriver:  "memory",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.APIKey = "" }},
		{"missing openai key", func(c *Config) { c.OpenAIAPIKey = "" }},
		{"anthropic without key", func(c *Config) { c.LLMProvider = "anthropic" }},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }},
		{"temperature out of range", func(c *Config) { c.LLMTemperature = 3 }},
		{"sqlite without dsn", func(c *Config) { c.StoreDriver = "sqlite" }},
		{"unknown store", func(c *Config) { c.StoreDriver = "mongo" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
