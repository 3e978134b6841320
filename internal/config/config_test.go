package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendarouter/internal/intent"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agendarouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendHeuristic, cfg.Router.Backend)
	assert.Empty(t, cfg.File)
	require.NoError(t, cfg.Validate())

	r, err := cfg.Routing()
	require.NoError(t, err)
	assert.Equal(t, intent.DefaultConfig(), r)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
router:
  backend: OpenAI
  default_provider: reclaim
  extra_providers: [motion]
  timeout: 3s
  max_retries: 1
  fallback: none
  vocabulary:
    task_terms: [task, chore]
openai:
  api_key: sk-file
  model: gpt-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, BackendOpenAI, cfg.Router.Backend)
	assert.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-test", cfg.OpenAI.Model)
	require.NoError(t, cfg.Validate())

	r, err := cfg.Routing()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, r.Timeout)
	assert.Equal(t, 1, r.MaxRetries)
	assert.Equal(t, intent.FallbackNone, r.Fallback)
	assert.Equal(t, intent.ProviderReclaim, r.DefaultProvider)
	assert.Equal(t, []string{"motion"}, r.ExtraProviders)
	assert.Equal(t, []string{"task", "chore"}, r.Vocabulary.TaskTerms)
	assert.Equal(t, intent.DefaultVocabulary().CalendarTerms, r.Vocabulary.CalendarTerms)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
router:
  backend: openai
  timeout: 3s
`)
	t.Setenv("ROUTER_BACKEND", "gemini")
	t.Setenv("ROUTER_TIMEOUT", "750ms")
	t.Setenv("ROUTER_MAX_RETRIES", "4")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, cfg.Router.Backend)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
	require.NoError(t, cfg.Validate())

	r, err := cfg.Routing()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, r.Timeout)
	assert.Equal(t, 4, r.MaxRetries)
}

func TestRouting_DefaultProvider(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	tests := []struct {
		name  string
		set   func(*Config)
		wantP string
	}{
		{"unset follows task provider", func(c *Config) {}, intent.ProviderReclaim},
		{"renamed task provider", func(c *Config) { c.Router.TaskProvider = "todoist" }, "todoist"},
		{"explicit calendar", func(c *Config) { c.Router.DefaultProvider = "Nylas" }, intent.ProviderNylas},
		{"none disables", func(c *Config) { c.Router.DefaultProvider = NoDefaultProvider }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.set(cfg)
			r, err := cfg.Routing()
			require.NoError(t, err)
			assert.Equal(t, tt.wantP, r.DefaultProvider)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Router.Backend = "claude" }, "invalid backend"},
		{"openai without key", func(c *Config) { c.Router.Backend = BackendOpenAI }, "OPENAI_API_KEY"},
		{"gemini without key", func(c *Config) { c.Router.Backend = BackendGemini }, "GEMINI_API_KEY"},
		{"bad fallback", func(c *Config) { c.Router.Fallback = "maybe" }, "fallback"},
		{"unknown default provider", func(c *Config) { c.Router.DefaultProvider = "asana" }, "default provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
