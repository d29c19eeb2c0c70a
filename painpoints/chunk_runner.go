package painpoints

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
)

const (
	AnalysisFileSuffix  = "_analysis.json"
	CombinedResultsFile = "all_chunk_analyses.json"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Concurrency is the number of chunks analyzed at once (defaults to 1, strictly sequential).
	Concurrency int

	// MaxChunks limits the run to the first N chunk files (0 means all).
	MaxChunks int

	// Overwrite re-analyzes chunks even when a result file already exists.
	Overwrite bool

	// OnResult is called once per freshly analyzed chunk. Calls never overlap.
	OnResult func(ChunkAnalysis)

	Logger *slog.Logger
}

// RunStats counts what happened to each chunk file of a run.
type RunStats struct {
	Total    int
	Analyzed int
	Reused   int
	Failed   int
}

// Runner analyzes every chunk of a directory, persisting each result as soon as it exists.
type Runner struct {
	analyzer ChunkAnalyzer
	opts     RunnerOptions
	log      *slog.Logger
}

// NewRunner returns a Runner over analyzer. Concurrency below 1 is raised to 1.
func NewRunner(analyzer ChunkAnalyzer, opts RunnerOptions) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Runner{analyzer: analyzer, opts: opts, log: loggerOrDiscard(opts.Logger)}
}

// AnalysisPath is where the result for chunkPath is stored under resultsDir.
func AnalysisPath(resultsDir, chunkPath string) string {
	return filepath.Join(resultsDir, fileutils.TrimExt(chunkPath, ChunkFileExt)+AnalysisFileSuffix)
}

// ListChunkFiles returns the *.csv files directly under dir, sorted by name.
// A missing dir has no chunk files.
func ListChunkFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ChunkFileExt) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// RunAll analyzes the chunk files of chunksDir in name order and writes the combined results file.
//
// A chunk whose result file already exists is loaded instead of analyzed. A chunk that fails is
// logged and left out; the run goes on. The returned slice is in chunk-name order.
// If ctx is cancelled no further chunks are started, the combined file is still written with
// what finished, and ctx's error is returned.
func (r *Runner) RunAll(ctx context.Context, chunksDir, resultsDir string) ([]ChunkAnalysis, RunStats, error) {
	if r.analyzer == nil {
		return nil, RunStats{}, errors.New("Runner: analyzer is nil")
	}
	chunkFiles, err := ListChunkFiles(chunksDir)
	if err != nil {
		return nil, RunStats{}, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunkFiles) == 0 {
		return nil, RunStats{}, &PreconditionError{
			What: "no chunk files found",
			Path: chunksDir,
			Hint: "run the split stage first",
		}
	}
	if r.opts.MaxChunks > 0 && len(chunkFiles) > r.opts.MaxChunks {
		chunkFiles = chunkFiles[:r.opts.MaxChunks]
	}

	unlock, err := fileutils.LockDir(resultsDir)
	if err != nil {
		var locked *fileutils.ErrDirLocked
		if errors.As(err, &locked) {
			return nil, RunStats{}, &PreconditionError{
				What: "results directory is in use by another run",
				Path: resultsDir,
				Hint: "wait for the other run to finish",
			}
		}
		return nil, RunStats{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			r.log.Warn("release results lock", "dir", resultsDir, "error", err)
		}
	}()

	r.log.Info("starting analysis", "chunks", len(chunkFiles), "concurrency", r.opts.Concurrency)

	stats := RunStats{Total: len(chunkFiles)}
	slots := make([]*ChunkAnalysis, len(chunkFiles))
	var mu sync.Mutex
	var hookMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, chunkPath := range chunkFiles {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Info(fmt.Sprintf("[%d/%d] processing", i+1, len(chunkFiles)), "chunk", filepath.Base(chunkPath))

			analysis, reused, err := r.runOne(ctx, chunkPath, resultsDir)

			mu.Lock()
			switch {
			case err != nil:
				stats.Failed++
			case reused:
				stats.Reused++
			default:
				stats.Analyzed++
			}
			mu.Unlock()

			if err != nil {
				r.log.Error("chunk failed; skipping", "chunk", fileutils.TrimExt(chunkPath, ChunkFileExt), "error", err)
				return nil
			}
			slots[i] = &analysis
			if !reused && r.opts.OnResult != nil {
				hookMu.Lock()
				r.opts.OnResult(analysis)
				hookMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]ChunkAnalysis, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			results = append(results, *a)
		}
	}

	combinedPath := filepath.Join(resultsDir, CombinedResultsFile)
	if err := fileutils.WriteJSONFileAtomic(combinedPath, results, true); err != nil {
		return results, stats, fmt.Errorf("write %s: %w", CombinedResultsFile, err)
	}
	r.log.Info("analysis complete",
		"path", combinedPath,
		"analyzed", stats.Analyzed,
		"reused", stats.Reused,
		"failed", stats.Failed)

	if err := ctx.Err(); err != nil {
		return results, stats, err
	}
	return results, stats, nil
}

// runOne loads or produces the analysis of one chunk. reused is true when it came from disk.
func (r *Runner) runOne(ctx context.Context, chunkPath, resultsDir string) (ChunkAnalysis, bool, error) {
	resultPath := AnalysisPath(resultsDir, chunkPath)
	if !r.opts.Overwrite && fileutils.FileExists(resultPath) {
		var existing ChunkAnalysis
		if err := fileutils.ReadJSONFile(resultPath, &existing); err != nil {
			return ChunkAnalysis{}, false, fmt.Errorf("load existing result: %w", err)
		}
		r.log.Info("skipping (already analyzed)", "chunk", filepath.Base(chunkPath))
		return existing, true, nil
	}

	analysis, err := r.analyzer.AnalyzeChunk(ctx, chunkPath)
	if err != nil {
		return ChunkAnalysis{}, false, err
	}
	if err := fileutils.WriteJSONFileAtomic(resultPath, analysis, true); err != nil {
		return ChunkAnalysis{}, false, fmt.Errorf("save result: %w", err)
	}
	r.log.Info("saved", "path", resultPath)
	return analysis, false, nil
}
