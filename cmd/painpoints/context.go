package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/logging"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

// commandContext carries flag values and resolved settings shared by all commands.
type commandContext struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	loadDotEnv   bool
	newGenerator func(context.Context, provider.Options) (provider.Generator, error)
	now          func() time.Time

	configPath  string
	flags       Config
	skipSplit   bool
	skipAnalyze bool

	cfg Config
	log *slog.Logger
}

func newCommandContext(stdout, stderr io.Writer, getenv func(string) string) *commandContext {
	return &commandContext{
		stdout:       stdout,
		stderr:       stderr,
		getenv:       getenv,
		newGenerator: provider.New,
		now:          time.Now,
		flags:        defaultConfig(),
		log:          slog.New(slog.DiscardHandler),
	}
}

// resolve layers defaults, the config file, the environment and the flags set on cmd.
func (c *commandContext) resolve(cmd *cobra.Command) error {
	if c.loadDotEnv {
		// A missing .env is normal.
		_ = godotenv.Load()
	}

	cfg := defaultConfig()
	if path := strings.TrimSpace(c.configPath); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return err
		}
	}
	applyEnv(&cfg, c.getenv)
	c.applyFlags(cmd, &cfg)
	cfg.normalize()

	if !cmd.Flags().Changed("api-key") {
		if key, _ := apiKeyFromEnv(cfg.Provider, c.getenv); key != "" {
			cfg.APIKey = key
		}
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if err := cfg.Validate(); err != nil {
		return usageErrorf("%v", err)
	}
	c.cfg = cfg

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: c.stderr})
	if err != nil {
		return usageErrorf("%v", err)
	}
	c.log = logger.With("run_id", uuid.NewString())
	return nil
}

func (c *commandContext) applyFlags(cmd *cobra.Command, cfg *Config) {
	fs := cmd.Flags()
	f := c.flags
	overrides := map[string]func(){
		"provider":          func() { cfg.Provider = f.Provider },
		"model":             func() { cfg.Model = f.Model },
		"api-key":           func() { cfg.APIKey = f.APIKey },
		"base-url":          func() { cfg.BaseURL = f.BaseURL },
		"log-level":         func() { cfg.LogLevel = f.LogLevel },
		"log-format":        func() { cfg.LogFormat = f.LogFormat },
		"chunk-size":        func() { cfg.ChunkSize = f.ChunkSize },
		"output-dir":        func() { cfg.OutputDir = f.OutputDir },
		"results-dir":       func() { cfg.ResultsDir = f.ResultsDir },
		"concurrency":       func() { cfg.Concurrency = f.Concurrency },
		"timeout":           func() { cfg.Timeout = f.Timeout },
		"rps":               func() { cfg.RPS = f.RPS },
		"burst":             func() { cfg.Burst = f.Burst },
		"max-chunks":        func() { cfg.MaxChunks = f.MaxChunks },
		"max-output-tokens": func() { cfg.MaxOutputTokens = f.MaxOutputTokens },
		"overwrite":         func() { cfg.Overwrite = f.Overwrite },
		"scale-frequencies": func() { cfg.ScaleFrequencies = f.ScaleFrequencies },
		"community":         func() { cfg.Community = f.Community },
	}
	for name, apply := range overrides {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			apply()
		}
	}
}

// requireAPIKey reports a missing credential as a precondition failure.
func (c *commandContext) requireAPIKey() error {
	if c.cfg.APIKey != "" {
		return nil
	}
	_, envName := apiKeyFromEnv(c.cfg.Provider, c.getenv)
	return &painpoints.PreconditionError{
		What: "missing API key for provider " + c.cfg.Provider,
		Path: envName,
		Hint: fmt.Sprintf("set %s (a .env file works) or pass --api-key", strings.Join(apiKeyEnvNames(c.cfg.Provider), " or ")),
	}
}

// generator builds the paced model client for the resolved provider.
func (c *commandContext) generator(ctx context.Context) (provider.Generator, error) {
	if err := c.requireAPIKey(); err != nil {
		return nil, err
	}
	gen, err := c.newGenerator(ctx, provider.Options{
		Provider: c.cfg.Provider,
		Model:    c.cfg.Model,
		APIKey:   c.cfg.APIKey,
		BaseURL:  c.cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", c.cfg.Provider, err)
	}
	c.log.Info("model client ready", "provider", c.cfg.Provider, "model", gen.Model(), "rps", c.cfg.RPS)
	return provider.WithPacing(gen, c.cfg.RPS, c.cfg.Burst), nil
}

func (c *commandContext) analyzerOptions() painpoints.AnalyzerOptions {
	return painpoints.AnalyzerOptions{
		Community:               c.cfg.Community,
		CallTimeout:             c.cfg.Timeout,
		ScaleSampledFrequencies: c.cfg.ScaleFrequencies,
		MaxOutputTokens:         c.cfg.MaxOutputTokens,
		Logger:                  c.log.With("component", "analyzer"),
	}
}

func (c *commandContext) aggregatorOptions() painpoints.AggregatorOptions {
	return painpoints.AggregatorOptions{
		Community:       c.cfg.Community,
		CallTimeout:     c.cfg.Timeout,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
		Logger:          c.log.With("component", "aggregator"),
	}
}
