// Package painpoints splits forum-post CSV exports into chunks, asks a model for the pain points in
// each chunk and consolidates the per-chunk results into one ranked report.
package painpoints

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
)

// ChunkFileExt is the extension of chunk files and of the input export.
const ChunkFileExt = ".csv"

// SplitOptions controls how SplitCSV writes chunk files.
type SplitOptions struct {
	// DirMode is used when creating the output directory (defaults to 0o755).
	DirMode fs.FileMode

	// FileMode is used when creating chunk files (defaults to 0o644).
	FileMode fs.FileMode

	Logger *slog.Logger
}

// SplitResult describes the chunks written by SplitCSV.
type SplitResult struct {
	// Paths lists the chunk files in ascending chunk-index order.
	Paths     []string
	Header    []string
	TotalRows int
}

// ChunkFileName returns the name of chunk index for an input base name.
func ChunkFileName(baseName string, index int) string {
	return fmt.Sprintf("%s_chunk_%04d%s", baseName, index, ChunkFileExt)
}

// SplitCSV streams inputFile and writes its data rows into chunk files of chunkSize rows each,
// every file starting with the input's header row. The last chunk may be shorter.
//
// Rows with a column count different from the header are kept as-is. Blank lines are skipped.
func SplitCSV(ctx context.Context, inputFile, outputDir string, chunkSize int, opts SplitOptions) (SplitResult, error) {
	if ctx == nil {
		return SplitResult{}, errors.New("SplitCSV: ctx is nil")
	}
	if inputFile == "" {
		return SplitResult{}, errors.New("SplitCSV: inputFile is empty")
	}
	if outputDir == "" {
		return SplitResult{}, errors.New("SplitCSV: outputDir is empty")
	}
	if chunkSize < 1 {
		return SplitResult{}, fmt.Errorf("SplitCSV: chunkSize must be >= 1, got %d", chunkSize)
	}
	if !fileutils.FileExists(inputFile) {
		return SplitResult{}, &PreconditionError{
			What: "input file not found",
			Path: inputFile,
			Hint: "pass the path of an existing CSV export",
		}
	}
	if opts.DirMode == 0 {
		opts.DirMode = 0o755
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	logger := loggerOrDiscard(opts.Logger)

	if err := os.MkdirAll(outputDir, opts.DirMode); err != nil {
		return SplitResult{}, fmt.Errorf("SplitCSV: mkdir outputDir: %w", err)
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return SplitResult{}, fmt.Errorf("SplitCSV: open input: %w", err)
	}
	defer f.Close()

	r := newRelaxedReader(f)
	baseName := fileutils.TrimExt(inputFile, ChunkFileExt)

	var res SplitResult
	var buf [][]string
	flush := func() error {
		path := filepath.Join(outputDir, ChunkFileName(baseName, len(res.Paths)))
		if err := writeChunk(path, res.Header, buf, opts.FileMode); err != nil {
			return fmt.Errorf("SplitCSV: write chunk %s: %w", filepath.Base(path), err)
		}
		logger.Info("wrote chunk", "chunk", len(res.Paths)+1, "path", path, "rows", len(buf))
		res.Paths = append(res.Paths, path)
		buf = buf[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return SplitResult{}, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return SplitResult{}, fmt.Errorf("SplitCSV: read %s: %w", filepath.Base(inputFile), err)
		}
		if res.Header == nil {
			res.Header = record
			logger.Info("csv header", "columns", strings.Join(res.Header, ", "))
			continue
		}
		buf = append(buf, record)
		res.TotalRows++
		if len(buf) >= chunkSize {
			if err := flush(); err != nil {
				return SplitResult{}, err
			}
		}
	}
	if len(buf) > 0 {
		if err := flush(); err != nil {
			return SplitResult{}, err
		}
	}

	logger.Info("split complete", "total_rows", res.TotalRows, "chunks", len(res.Paths))
	return res, nil
}

// newRelaxedReader returns a csv.Reader that accepts ragged rows and stray quotes.
func newRelaxedReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func writeChunk(path string, header []string, rows [][]string, mode fs.FileMode) error {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	if header != nil {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return fileutils.WriteFileAtomic(path, b.Bytes(), mode)
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
