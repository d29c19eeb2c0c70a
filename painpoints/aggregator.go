package painpoints

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

var finalAnalysisSchema = provider.MustSchemaFor[FinalAnalysis]("FinalAnalysis", "Consolidated pain points and feature ideas across all chunks")

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	// Community names the platform the posts come from (defaults to DefaultCommunity).
	Community string

	// CallTimeout bounds the consolidation call (defaults to DefaultCallTimeout; negative disables).
	CallTimeout time.Duration

	MaxOutputTokens int64

	Logger *slog.Logger
}

// Aggregator consolidates per-chunk analyses with a single model call.
type Aggregator struct {
	gen  provider.Generator
	opts AggregatorOptions
	log  *slog.Logger
}

// NewAggregator returns an Aggregator that calls gen once per Combine.
func NewAggregator(gen provider.Generator, opts AggregatorOptions) *Aggregator {
	if strings.TrimSpace(opts.Community) == "" {
		opts.Community = DefaultCommunity
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Aggregator{gen: gen, opts: opts, log: loggerOrDiscard(opts.Logger)}
}

// LoadChunkAnalyses reads the combined results file written by Runner.RunAll.
func LoadChunkAnalyses(resultsDir string) ([]ChunkAnalysis, error) {
	path := filepath.Join(resultsDir, CombinedResultsFile)
	if !fileutils.FileExists(path) {
		return nil, &PreconditionError{
			What: "results file not found",
			Path: path,
			Hint: "run the analyze stage first",
		}
	}
	var analyses []ChunkAnalysis
	if err := fileutils.ReadJSONFile(path, &analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

// RequireChunkAnalyses is LoadChunkAnalyses that also treats an empty results file as a precondition failure.
func RequireChunkAnalyses(resultsDir string) ([]ChunkAnalysis, error) {
	analyses, err := LoadChunkAnalyses(resultsDir)
	if err != nil {
		return nil, err
	}
	if len(analyses) == 0 {
		return nil, &PreconditionError{
			What: "results file has no chunk analyses",
			Path: filepath.Join(resultsDir, CombinedResultsFile),
			Hint: "run the analyze stage first and check its errors",
		}
	}
	return analyses, nil
}

// Combine loads resultsDir's combined results and asks the model to consolidate them.
// totalPostsAnalyzed is always the sum of the chunks' totals. Model failures are *AggregationError.
func (a *Aggregator) Combine(ctx context.Context, resultsDir string) (FinalAnalysis, error) {
	analyses, err := RequireChunkAnalyses(resultsDir)
	if err != nil {
		return FinalAnalysis{}, err
	}
	return a.CombineAnalyses(ctx, analyses)
}

// CombineAnalyses is Combine over analyses already in memory.
func (a *Aggregator) CombineAnalyses(ctx context.Context, analyses []ChunkAnalysis) (FinalAnalysis, error) {
	if a.gen == nil {
		return FinalAnalysis{}, &AggregationError{Op: "generate", Err: errors.New("generator is nil")}
	}

	totalPosts := TotalPosts(analyses)
	lines := PainPointLines(analyses)
	a.log.Info("combining chunk analyses",
		"chunks", len(analyses),
		"total_posts", totalPosts,
		"pain_points", len(lines))

	req := provider.Request{
		Instructions:    buildCombineInstructions(a.opts.Community),
		Prompt:          buildCombinePrompt(analyses, totalPosts, lines),
		Schema:          finalAnalysisSchema,
		MaxOutputTokens: a.opts.MaxOutputTokens,
	}

	callCtx := ctx
	if a.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.opts.CallTimeout)
		defer cancel()
	}
	out, err := a.gen.Generate(callCtx, req)
	if err != nil {
		a.log.Error("model call failed",
			"model", a.gen.Model(),
			"rate_limited", provider.IsRateLimitError(err),
			"error", err)
		return FinalAnalysis{}, &AggregationError{Op: "generate", Err: err}
	}

	var final FinalAnalysis
	if err := finalAnalysisSchema.Decode(out, &final); err != nil {
		return FinalAnalysis{}, &AggregationError{Op: "decode", Err: fmt.Errorf("%w (model_output_prefix=%q)", err, fileutils.TruncateRunes(out, 200))}
	}
	if err := final.Validate(); err != nil {
		return FinalAnalysis{}, &AggregationError{Op: "validate", Err: err}
	}
	if final.TotalPostsAnalyzed != totalPosts {
		a.log.Warn("model echoed a different totalPostsAnalyzed; keeping the chunk sum", "sum", totalPosts, "model_value", final.TotalPostsAnalyzed)
		final.TotalPostsAnalyzed = totalPosts
	}
	return final, nil
}

// TotalPosts sums the chunks' full row counts.
func TotalPosts(analyses []ChunkAnalysis) int {
	n := 0
	for _, c := range analyses {
		n += c.TotalPostsAnalyzed
	}
	return n
}

// PainPointLines renders every chunk-level pain point as one prompt line tagged with its chunk.
func PainPointLines(analyses []ChunkAnalysis) []string {
	var lines []string
	for _, c := range analyses {
		for _, p := range c.PainPoints {
			lines = append(lines, fmt.Sprintf("[%s] %s (severity: %s, freq: %d, chunk: %s)",
				p.Category, p.Description, p.Severity, p.Frequency, c.ChunkID))
		}
	}
	return lines
}

// UniqueThemes returns every theme once, in first-seen order.
func UniqueThemes(analyses []ChunkAnalysis) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range analyses {
		for _, t := range c.TopThemes {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func buildCombineInstructions(community string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are creating a final consolidated analysis of user pain points from a %s.\n\n", community)
	b.WriteString("Your task:\n")
	b.WriteString("1. Consolidate similar pain points across chunks into unified categories\n")
	b.WriteString("2. Calculate total mentions for each consolidated pain point\n")
	b.WriteString("3. Prioritize based on severity and frequency (priority score 1-10)\n")
	fmt.Fprintf(&b, "4. Generate the top %d feature ideas that would address the most impactful pain points\n", MaxFeatureIdeas)
	b.WriteString("5. Write an executive summary for stakeholders\n\n")
	b.WriteString("Focus on actionable insights that could drive product improvements.")
	return b.String()
}

func buildCombinePrompt(analyses []ChunkAnalysis, totalPosts int, lines []string) string {
	sentiments := make([]string, len(analyses))
	for i, c := range analyses {
		sentiments[i] = string(c.OverallSentiment)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have analyzed %d chunks of data containing %s total forum posts.\n\n",
		len(analyses), humanize.Comma(int64(totalPosts)))
	b.WriteString("PAIN POINTS FOUND ACROSS ALL CHUNKS:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nTHEMES FOUND:\n")
	b.WriteString(strings.Join(UniqueThemes(analyses), ", "))
	b.WriteString("\n\nSENTIMENT DISTRIBUTION:\n")
	b.WriteString(strings.Join(sentiments, ", "))
	fmt.Fprintf(&b, "\n\nRemember: totalPostsAnalyzed should be %d.", totalPosts)
	return b.String()
}
