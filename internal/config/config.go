// Package config loads router and classifier backend settings.
//
// Values come from an optional YAML file and from environment variables.
// Environment variables win over the file. Command line flags are applied
// on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teemow/agendarouter/internal/intent"
)

// Classifier backends.
const (
	BackendHeuristic = intent.SourceHeuristic
	BackendOpenAI    = intent.SourceOpenAI
	BackendGemini    = intent.SourceGemini
)

// NoDefaultProvider as router.default_provider turns the default off, so
// queries without task or calendar vocabulary fail as undecided.
const NoDefaultProvider = "none"

// ConfigName is the base name of the config file searched for when no
// explicit path is given.
const ConfigName = "agendarouter"

// RouterSettings mirrors intent.Config in file form.
type RouterSettings struct {
	Backend              string             `mapstructure:"backend"`
	TaskProvider         string             `mapstructure:"task_provider"`
	CalendarProvider     string             `mapstructure:"calendar_provider"`
	ExtraProviders       []string           `mapstructure:"extra_providers"`
	DefaultProvider      string             `mapstructure:"default_provider"`
	Timeout              time.Duration      `mapstructure:"timeout"`
	MaxRetries           int                `mapstructure:"max_retries"`
	RetryInitialInterval time.Duration      `mapstructure:"retry_initial_interval"`
	Fallback             string             `mapstructure:"fallback"`
	Vocabulary           *intent.Vocabulary `mapstructure:"vocabulary"`
}

// OpenAISettings configures the OpenAI backend.
type OpenAISettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiSettings configures the Gemini backend.
type GeminiSettings struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Config is the loaded configuration.
type Config struct {
	Router RouterSettings `mapstructure:"router"`
	OpenAI OpenAISettings `mapstructure:"openai"`
	Gemini GeminiSettings `mapstructure:"gemini"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// envBindings maps config keys to environment variables.
var envBindings = map[string]string{
	"router.backend":                "ROUTER_BACKEND",
	"router.task_provider":          "ROUTER_TASK_PROVIDER",
	"router.calendar_provider":      "ROUTER_CALENDAR_PROVIDER",
	"router.extra_providers":        "ROUTER_EXTRA_PROVIDERS",
	"router.default_provider":       "ROUTER_DEFAULT_PROVIDER",
	"router.timeout":                "ROUTER_TIMEOUT",
	"router.max_retries":            "ROUTER_MAX_RETRIES",
	"router.retry_initial_interval": "ROUTER_RETRY_INITIAL_INTERVAL",
	"router.fallback":               "ROUTER_FALLBACK",
	"openai.api_key":                "OPENAI_API_KEY",
	"openai.model":                  "OPENAI_MODEL",
	"openai.base_url":               "OPENAI_BASE_URL",
	"gemini.api_key":                "GEMINI_API_KEY",
	"gemini.model":                  "GEMINI_MODEL",
}

// Load reads the configuration. An empty path searches the working
// directory and the user config directory for agendarouter.yaml and is not
// an error when nothing is found. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Router.Backend = strings.ToLower(strings.TrimSpace(cfg.Router.Backend))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := intent.DefaultConfig()
	v.SetDefault("router.backend", BackendHeuristic)
	v.SetDefault("router.task_provider", def.TaskProvider)
	v.SetDefault("router.calendar_provider", def.CalendarProvider)
	v.SetDefault("router.timeout", def.Timeout)
	v.SetDefault("router.max_retries", def.MaxRetries)
	v.SetDefault("router.retry_initial_interval", def.RetryInitialInterval)
	v.SetDefault("router.fallback", string(def.Fallback))
}

// Routing builds and validates the router configuration. Vocabulary lists
// missing from the file keep their built-in values. An unset default
// provider means the task provider.
func (c *Config) Routing() (intent.Config, error) {
	r := intent.DefaultConfig()
	r.TaskProvider = c.Router.TaskProvider
	r.CalendarProvider = c.Router.CalendarProvider
	r.ExtraProviders = c.Router.ExtraProviders
	switch dp := strings.ToLower(strings.TrimSpace(c.Router.DefaultProvider)); dp {
	case "":
		r.DefaultProvider = r.TaskProvider
	case NoDefaultProvider:
		r.DefaultProvider = ""
	default:
		r.DefaultProvider = dp
	}
	r.Timeout = c.Router.Timeout
	r.MaxRetries = c.Router.MaxRetries
	r.RetryInitialInterval = c.Router.RetryInitialInterval
	r.Fallback = intent.FallbackMode(strings.ToLower(c.Router.Fallback))

	if voc := c.Router.Vocabulary; voc != nil {
		if len(voc.TaskTerms) > 0 {
			r.Vocabulary.TaskTerms = voc.TaskTerms
		}
		if len(voc.CalendarTerms) > 0 {
			r.Vocabulary.CalendarTerms = voc.CalendarTerms
		}
		if len(voc.CollaborativeTerms) > 0 {
			r.Vocabulary.CollaborativeTerms = voc.CollaborativeTerms
		}
		if len(voc.BulkTerms) > 0 {
			r.Vocabulary.BulkTerms = voc.BulkTerms
		}
		if len(voc.Operations) > 0 {
			r.Vocabulary.Operations = voc.Operations
		}
	}

	if err := r.Validate(); err != nil {
		return intent.Config{}, err
	}
	return r, nil
}

// Validate checks the backend selection and its credentials.
func (c *Config) Validate() error {
	switch c.Router.Backend {
	case BackendHeuristic:
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("backend %q requires OPENAI_API_KEY", BackendOpenAI)
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("backend %q requires GEMINI_API_KEY", BackendGemini)
		}
	default:
		return fmt.Errorf("invalid backend %q, must be one of: %s, %s, %s",
			c.Router.Backend, BackendHeuristic, BackendOpenAI, BackendGemini)
	}
	_, err := c.Routing()
	return err
}
