package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

func newSplitCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <input.csv>",
		Short: "Split a CSV export into chunk files under <output-dir>/chunks",
		Args:  argsWithUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunksDir := filepath.Join(cc.cfg.OutputDir, chunksSubdir)
			_, err := cc.splitStage(cmd.Context(), args[0], chunksDir)
			return err
		},
	}
	addChunkSizeFlag(cmd, cc)
	addOutputDirFlag(cmd, cc)
	return cmd
}
