package painpoints

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

const (
	DefaultCommunity   = "music/DJ community platform"
	DefaultCallTimeout = 5 * time.Minute
)

var chunkAnalysisSchema = provider.MustSchemaFor[ChunkAnalysis]("ChunkAnalysis", "Pain points, themes and sentiment of one chunk of forum posts")

// ChunkAnalyzer turns one chunk file into a ChunkAnalysis.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, chunkPath string) (ChunkAnalysis, error)
}

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	// Community names the platform the posts come from (defaults to DefaultCommunity).
	Community string

	// CallTimeout bounds each model call (defaults to DefaultCallTimeout; negative disables).
	CallTimeout time.Duration

	// ScaleSampledFrequencies multiplies each pain point's frequency by rows/sampled when the
	// chunk was sampled, so it estimates mentions across the whole chunk.
	ScaleSampledFrequencies bool

	MaxOutputTokens int64

	Logger *slog.Logger
}

// Analyzer is the model-backed ChunkAnalyzer.
type Analyzer struct {
	gen  provider.Generator
	opts AnalyzerOptions
	log  *slog.Logger
}

// NewAnalyzer returns an Analyzer that calls gen once per chunk.
func NewAnalyzer(gen provider.Generator, opts AnalyzerOptions) *Analyzer {
	if strings.TrimSpace(opts.Community) == "" {
		opts.Community = DefaultCommunity
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Analyzer{gen: gen, opts: opts, log: loggerOrDiscard(opts.Logger)}
}

// AnalyzeChunk reads chunkPath, samples at most MaxSampledPosts posts and asks the model for a
// ChunkAnalysis. chunkId and totalPostsAnalyzed always come from the file, not the model.
// Every failure is an *AnalysisError.
func (a *Analyzer) AnalyzeChunk(ctx context.Context, chunkPath string) (ChunkAnalysis, error) {
	chunkID := fileutils.TrimExt(chunkPath, ChunkFileExt)
	if a.gen == nil {
		return ChunkAnalysis{}, &AnalysisError{ChunkID: chunkID, Op: "generate", Err: errors.New("generator is nil")}
	}

	posts, err := ReadPosts(chunkPath)
	if err != nil {
		return ChunkAnalysis{}, &AnalysisError{ChunkID: chunkID, Op: "read", Err: err}
	}
	total := len(posts)
	if total == 0 {
		return ChunkAnalysis{}, &AnalysisError{ChunkID: chunkID, Op: "read", Err: errors.New("chunk has no data rows")}
	}
	sampled := SampleRows(posts, MaxSampledPosts)
	a.log.Info("analyzing chunk", "chunk", chunkID, "posts", total, "sampled", len(sampled))

	req := provider.Request{
		Instructions:    buildChunkInstructions(a.opts.Community),
		Prompt:          buildChunkPrompt(chunkID, total, sampled),
		Schema:          chunkAnalysisSchema,
		MaxOutputTokens: a.opts.MaxOutputTokens,
	}

	callCtx := ctx
	if a.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.opts.CallTimeout)
		defer cancel()
	}
	start := time.Now()
	out, err := a.gen.Generate(callCtx, req)
	if err != nil {
		a.log.Warn("model call failed",
			"chunk", chunkID,
			"model", a.gen.Model(),
			"elapsed", time.Since(start).Round(time.Millisecond),
			"rate_limited", provider.IsRateLimitError(err),
			"error", err)
		return ChunkAnalysis{}, &AnalysisError{ChunkID: chunkID, Op: "generate", Err: err}
	}

	var analysis ChunkAnalysis
	if err := chunkAnalysisSchema.Decode(out, &analysis); err != nil {
		return ChunkAnalysis{}, &AnalysisError{ChunkID: chunkID, Op: "decode", Err: fmt.Errorf("%w (model_output_prefix=%q)", err, fileutils.TruncateRunes(out, 200))}
	}
	if err := analysis.Validate(); err != nil {
		return ChunkAnalysis{}, &AnalysisError{ChunkID: chunkID, Op: "validate", Err: err}
	}

	if analysis.ChunkID != chunkID {
		a.log.Warn("model echoed a different chunkId; keeping the file's", "chunk", chunkID, "model_value", analysis.ChunkID)
		analysis.ChunkID = chunkID
	}
	if analysis.TotalPostsAnalyzed != total {
		a.log.Warn("model echoed a different totalPostsAnalyzed; keeping the row count", "chunk", chunkID, "rows", total, "model_value", analysis.TotalPostsAnalyzed)
		analysis.TotalPostsAnalyzed = total
	}
	if a.opts.ScaleSampledFrequencies && len(sampled) < total {
		scaleFrequencies(analysis.PainPoints, total, len(sampled))
	}
	return analysis, nil
}

// scaleFrequencies rescales sample-based frequency estimates to the full row count.
func scaleFrequencies(points []PainPoint, total, sampled int) {
	if sampled <= 0 {
		return
	}
	factor := float64(total) / float64(sampled)
	for i := range points {
		points[i].Frequency = max(1, int(math.Round(float64(points[i].Frequency)*factor)))
	}
}

func buildChunkInstructions(community string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing forum posts from a %s to identify user pain points and feature ideas.\n\n", community)
	b.WriteString("Identify:\n")
	b.WriteString("1. Pain points users are experiencing (bugs, missing features, frustrations, complaints)\n")
	b.WriteString("2. Recurring themes in discussions (at most 5)\n")
	b.WriteString("3. Overall sentiment\n\n")
	b.WriteString("Focus on actionable insights that could lead to product improvements.\n")
	b.WriteString("Provide a thorough analysis with specific pain points, categorized by type. ")
	b.WriteString("Include actual quotes from posts as examples (at most 3 per pain point).\n")
	b.WriteString("frequency is your estimate of how many of the shown posts mention the issue (at least 1).")
	return b.String()
}

func buildChunkPrompt(chunkID string, total int, posts []Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %d forum posts.\n\n", len(posts))
	b.WriteString("FORUM POSTS:\n")
	for i, p := range posts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		text := fileutils.TruncateRunes(ContentOf(p), MaxPostRunes)
		if text == "" {
			text = "(empty)"
		}
		fmt.Fprintf(&b, "[Post %d]: %s", i+1, text)
	}
	fmt.Fprintf(&b, "\n\nRemember: chunkId should be %q and totalPostsAnalyzed should be %d.", chunkID, total)
	return b.String()
}
