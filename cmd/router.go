package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agendarouter/internal/config"
	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/intent/gemini"
	"github.com/teemow/agendarouter/internal/intent/openai"
)

// routerFlags are the router settings that can be overridden per command.
type routerFlags struct {
	backend         string
	defaultProvider string
	fallback        string
	timeout         time.Duration
	maxRetries      int
}

func (f *routerFlags) register(cmd *cobra.Command) {
	def := intent.DefaultConfig()
	cmd.Flags().StringVar(&f.backend, "backend", config.BackendHeuristic, "Classifier backend: heuristic, openai or gemini. Can also use ROUTER_BACKEND env var.")
	cmd.Flags().StringVar(&f.defaultProvider, "default-provider", "", "Provider for queries without task or calendar vocabulary, \"none\" to fail them instead. Defaults to the task provider. Can also use ROUTER_DEFAULT_PROVIDER env var.")
	cmd.Flags().StringVar(&f.fallback, "fallback", string(def.Fallback), "Behavior when the remote backend fails: heuristic or none. Can also use ROUTER_FALLBACK env var.")
	cmd.Flags().DurationVar(&f.timeout, "timeout", def.Timeout, "Time budget for the remote backend, retries included. Can also use ROUTER_TIMEOUT env var.")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", def.MaxRetries, "Retries after a failed remote call. Can also use ROUTER_MAX_RETRIES env var.")
}

// apply overrides loaded settings with the flags the user set explicitly.
func (f *routerFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Router.Backend = f.backend
	}
	if flags.Changed("default-provider") {
		cfg.Router.DefaultProvider = f.defaultProvider
	}
	if flags.Changed("fallback") {
		cfg.Router.Fallback = f.fallback
	}
	if flags.Changed("timeout") {
		cfg.Router.Timeout = f.timeout
	}
	if flags.Changed("max-retries") {
		cfg.Router.MaxRetries = f.maxRetries
	}
}

// loadConfig reads the config file and env, then applies flag overrides.
func loadConfig(cmd *cobra.Command, flags *routerFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newRouter builds the router and its remote backend from cfg.
func newRouter(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...intent.Option) (*intent.Router, error) {
	routing, err := cfg.Routing()
	if err != nil {
		return nil, err
	}

	remote, err := newBackend(ctx, cfg, routing)
	if err != nil {
		return nil, err
	}

	opts = append([]intent.Option{intent.WithLogger(logger)}, opts...)
	router, err := intent.NewRouter(routing, remote, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	logger.Info("router configured",
		slog.String("backend", router.Backend()),
		slog.String("fallback", string(routing.Fallback)),
		slog.Duration("timeout", routing.Timeout),
		slog.String("config_file", cfg.File))
	return router, nil
}

// newBackend returns the remote classifier, or nil for heuristic-only routing.
func newBackend(ctx context.Context, cfg *config.Config, routing intent.Config) (intent.Classifier, error) {
	switch cfg.Router.Backend {
	case config.BackendOpenAI:
		c, err := openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: routing.Timeout,
		}, routing)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI backend: %w", err)
		}
		return c, nil
	case config.BackendGemini:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			Timeout: routing.Timeout,
		}, routing)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini backend: %w", err)
		}
		return c, nil
	default:
		return nil, nil
	}
}
