package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
)

func newCombineCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "combine <results-dir>",
		Short: "Consolidate chunk analyses into the final JSON and Markdown report",
		Args:  argsWithUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			resultsDir := filepath.Clean(args[0])
			analyses, err := painpoints.RequireChunkAnalyses(resultsDir)
			if err != nil {
				return err
			}
			gen, err := cc.generator(cmd.Context())
			if err != nil {
				return err
			}
			return cc.combineStage(cmd.Context(), gen, resultsDir, analyses)
		},
	}
}
