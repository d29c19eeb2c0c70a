package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/display"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

const (
	chunksSubdir  = "chunks"
	resultsSubdir = "results"
)

func (c *commandContext) splitStage(ctx context.Context, input, chunksDir string) (painpoints.SplitResult, error) {
	res, err := painpoints.SplitCSV(ctx, input, chunksDir, c.cfg.ChunkSize, painpoints.SplitOptions{
		Logger: c.log.With("stage", "split"),
	})
	if err != nil {
		return res, err
	}
	fmt.Fprintf(c.stdout, "chunks_written=%d rows=%d out_dir=%s\n", len(res.Paths), res.TotalRows, chunksDir)
	return res, nil
}

func (c *commandContext) analyzeStage(ctx context.Context, gen provider.Generator, chunksDir, resultsDir string) ([]painpoints.ChunkAnalysis, error) {
	analyzer := painpoints.NewAnalyzer(gen, c.analyzerOptions())
	runner := painpoints.NewRunner(analyzer, painpoints.RunnerOptions{
		Concurrency: c.cfg.Concurrency,
		MaxChunks:   c.cfg.MaxChunks,
		Overwrite:   c.cfg.Overwrite,
		OnResult: func(a painpoints.ChunkAnalysis) {
			display.ChunkAnalysis(c.stdout, a)
		},
		Logger: c.log.With("stage", "analyze"),
	})

	results, stats, err := runner.RunAll(ctx, chunksDir, resultsDir)
	if stats.Total > 0 {
		fmt.Fprintf(c.stdout, "chunks_total=%d analyzed=%d reused=%d failed=%d results=%s\n",
			stats.Total, stats.Analyzed, stats.Reused, stats.Failed, filepath.Join(resultsDir, painpoints.CombinedResultsFile))
	}
	if err != nil {
		return results, err
	}
	if len(results) == 0 {
		return results, fmt.Errorf("all %d chunks failed to analyze", stats.Total)
	}
	return results, nil
}

func (c *commandContext) combineStage(ctx context.Context, gen provider.Generator, resultsDir string, analyses []painpoints.ChunkAnalysis) error {
	final, err := painpoints.NewAggregator(gen, c.aggregatorOptions()).CombineAnalyses(ctx, analyses)
	if err != nil {
		return err
	}
	paths, err := painpoints.WriteFinalReport(final, resultsDir, painpoints.ReportOptions{Now: c.now})
	if err != nil {
		return err
	}
	display.FinalAnalysis(c.stdout, final)
	fmt.Fprintf(c.stdout, "pain_points=%d feature_ideas=%d total_posts=%d json=%s markdown=%s\n",
		len(final.ConsolidatedPainPoints), len(final.TopFeatureIdeas), final.TotalPostsAnalyzed, paths.JSON, paths.Markdown)
	return nil
}
