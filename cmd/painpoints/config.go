package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/logging"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-5-mini"
	defaultChunkSize   = 100000
	defaultOutputDir   = "./output"
)

// Config holds every setting a command may read. Values are layered:
// defaults, then the --config file, then environment, then flags.
type Config struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	ChunkSize  int    `toml:"chunk_size"`
	OutputDir  string `toml:"output_dir"`
	ResultsDir string `toml:"results_dir"`

	Concurrency      int     `toml:"concurrency"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	RPS              float64 `toml:"rps"`
	Burst            int     `toml:"burst"`
	MaxChunks        int     `toml:"max_chunks"`
	MaxOutputTokens  int64   `toml:"max_output_tokens"`
	Overwrite        bool    `toml:"overwrite"`
	ScaleFrequencies bool    `toml:"scale_frequencies"`
	Community        string  `toml:"community"`

	// Timeout bounds each model call. The file sets it through timeout_seconds.
	Timeout time.Duration `toml:"-"`
}

func defaultConfig() Config {
	return Config{
		Provider:    provider.ProviderGemini,
		LogLevel:    "info",
		LogFormat:   logging.FormatAuto,
		ChunkSize:   defaultChunkSize,
		OutputDir:   defaultOutputDir,
		Concurrency: 1,
		Timeout:     painpoints.DefaultCallTimeout,
		Community:   painpoints.DefaultCommunity,
	}
}

func (c Config) Validate() error {
	switch c.Provider {
	case provider.ProviderGemini, provider.ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported --provider %q (want gemini or openai)", c.Provider)
	}
	if c.Model == "" {
		return errors.New("missing --model")
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("unsupported --log-format %q", c.LogFormat)
	}
	if c.ChunkSize <= 0 {
		return errors.New("chunk-size must be > 0")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if c.Concurrency < 0 || c.MaxChunks < 0 || c.Burst < 0 || c.MaxOutputTokens < 0 {
		return errors.New("concurrency/max-chunks/burst/max-output-tokens must be >= 0")
	}
	if c.RPS < 0 {
		return errors.New("rps must be >= 0")
	}
	return nil
}

// apiKeyEnvNames lists the variables consulted for a provider's key, in order.
func apiKeyEnvNames(providerName string) []string {
	if providerName == provider.ProviderOpenAI {
		return []string{"OPENAI_API_KEY"}
	}
	return []string{"GOOGLE_GENERATIVE_AI_API_KEY", "GEMINI_API_KEY"}
}

func defaultModelFor(providerName string) string {
	if providerName == provider.ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultGeminiModel
}

// loadConfigFile overlays the TOML file at path onto cfg. Unknown keys are rejected.
func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &painpoints.PreconditionError{
				What: "config file not found",
				Path: path,
				Hint: "check the --config path",
			}
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s: %s", path, strings.TrimSpace(strict.String()))
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return nil
}

// applyEnv overlays provider and model from the environment. The API key is
// resolved separately, once the provider is known.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv("PAINPOINTS_PROVIDER")); v != "" {
		cfg.Provider = v
	}
	if v := strings.TrimSpace(getenv("PAINPOINTS_MODEL")); v != "" {
		cfg.Model = v
	}
}

func apiKeyFromEnv(providerName string, getenv func(string) string) (string, string) {
	names := apiKeyEnvNames(providerName)
	for _, name := range names {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v, name
		}
	}
	return "", names[0]
}

// normalize lower-cases enumerations and fills provider-dependent defaults.
func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = provider.ProviderGemini
	}
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = defaultModelFor(c.Provider)
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Community = strings.TrimSpace(c.Community)
	if c.Community == "" {
		c.Community = painpoints.DefaultCommunity
	}
}
