package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <chunks-dir>",
		Short: "Analyze every chunk file with the model, resuming from saved results",
		Args:  argsWithUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunksDir := filepath.Clean(args[0])
			resultsDir := strings.TrimSpace(cc.cfg.ResultsDir)
			if resultsDir == "" {
				resultsDir = filepath.Join(filepath.Dir(chunksDir), resultsSubdir)
			}
			gen, err := cc.generator(cmd.Context())
			if err != nil {
				return err
			}
			_, err = cc.analyzeStage(cmd.Context(), gen, chunksDir, resultsDir)
			return err
		},
	}
	cmd.Flags().StringVar(&cc.flags.ResultsDir, "results-dir", "", "Where analyses are written (default: results/ next to the chunks directory)")
	return cmd
}
