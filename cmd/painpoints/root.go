package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/logging"
)

func newRootCommand(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "painpoints",
		Short:         "Mine user pain points and feature ideas from a CSV export of forum posts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	f := &cc.flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cc.configPath, "config", "", "TOML configuration file")
	pf.StringVar(&f.Provider, "provider", f.Provider, "Model provider: gemini or openai (env PAINPOINTS_PROVIDER)")
	pf.StringVar(&f.Model, "model", "", fmt.Sprintf("Model id (env PAINPOINTS_MODEL; default %s or %s)", defaultGeminiModel, defaultOpenAIModel))
	pf.StringVar(&f.APIKey, "api-key", "", "API key (defaults to GOOGLE_GENERATIVE_AI_API_KEY/GEMINI_API_KEY or OPENAI_API_KEY)")
	pf.StringVar(&f.BaseURL, "base-url", "", "Override the provider API base URL")
	pf.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&f.LogFormat, "log-format", f.LogFormat, fmt.Sprintf("Log format: %s, %s or %s", logging.FormatAuto, logging.FormatConsole, logging.FormatJSON))
	pf.IntVar(&f.Concurrency, "concurrency", f.Concurrency, "Chunks analyzed at the same time")
	pf.DurationVar(&f.Timeout, "timeout", f.Timeout, "Timeout for each model call")
	pf.Float64Var(&f.RPS, "rps", 0, "Max model calls per second (0 = unlimited)")
	pf.IntVar(&f.Burst, "burst", 0, "Burst size for --rps")
	pf.IntVar(&f.MaxChunks, "max-chunks", 0, "Analyze at most this many chunks (0 = all)")
	pf.Int64Var(&f.MaxOutputTokens, "max-output-tokens", 0, "Cap on tokens per model response (0 = provider default)")
	pf.BoolVar(&f.Overwrite, "overwrite", false, "Re-analyze chunks that already have a result file")
	pf.BoolVar(&f.ScaleFrequencies, "scale-frequencies", false, "Scale pain point frequencies from sampled posts to the full chunk")
	pf.StringVar(&f.Community, "community", f.Community, "Community description used in prompts")

	rootCmd.AddCommand(newSplitCommand(cc))
	rootCmd.AddCommand(newAnalyzeCommand(cc))
	rootCmd.AddCommand(newCombineCommand(cc))
	rootCmd.AddCommand(newRunCommand(cc))

	return rootCmd
}

// argsWithUsage wraps a cobra argument check so its failure maps to a usage exit code.
func argsWithUsage(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func addChunkSizeFlag(cmd *cobra.Command, cc *commandContext) {
	cmd.Flags().IntVar(&cc.flags.ChunkSize, "chunk-size", defaultChunkSize, "Data rows per chunk file")
}

func addOutputDirFlag(cmd *cobra.Command, cc *commandContext) {
	cmd.Flags().StringVar(&cc.flags.OutputDir, "output-dir", defaultOutputDir, "Output directory (chunks/ and results/ are created inside)")
}
