package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input.csv>",
		Short: "Split, analyze and combine in one go",
		Args:  argsWithUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			return cc.runPipeline(cmd, input)
		},
	}
	addChunkSizeFlag(cmd, cc)
	addOutputDirFlag(cmd, cc)
	cmd.Flags().BoolVar(&cc.skipSplit, "skip-split", false, "Reuse existing chunk files")
	cmd.Flags().BoolVar(&cc.skipAnalyze, "skip-analyze", false, "Reuse the existing combined results file")
	return cmd
}

// runPipeline checks every precondition before the first stage starts.
func (c *commandContext) runPipeline(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()
	chunksDir := filepath.Join(c.cfg.OutputDir, chunksSubdir)
	resultsDir := filepath.Join(c.cfg.OutputDir, resultsSubdir)

	if !c.skipSplit {
		if input == "" {
			return usageErrorf("run needs <input.csv> unless --skip-split is set")
		}
		if !fileutils.FileExists(input) {
			return &painpoints.PreconditionError{
				What: "input file not found",
				Path: input,
				Hint: "pass the path of an existing CSV export",
			}
		}
	}
	if err := c.requireAPIKey(); err != nil {
		return err
	}
	var existing []painpoints.ChunkAnalysis
	if c.skipAnalyze {
		var err error
		if existing, err = painpoints.RequireChunkAnalyses(resultsDir); err != nil {
			return err
		}
	}

	gen, err := c.generator(ctx)
	if err != nil {
		return err
	}

	if c.skipSplit {
		c.log.Info("skipping split", "chunks_dir", chunksDir)
	} else if _, err := c.splitStage(ctx, input, chunksDir); err != nil {
		return err
	}

	analyses := existing
	if c.skipAnalyze {
		c.log.Info("skipping analyze", "results_dir", resultsDir, "chunks", len(existing))
	} else if analyses, err = c.analyzeStage(ctx, gen, chunksDir, resultsDir); err != nil {
		return err
	}

	return c.combineStage(ctx, gen, resultsDir, analyses)
}
