package painpoints

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

// fakeGenerator answers every request with respond and records what it was asked.
type fakeGenerator struct {
	respond func(req provider.Request) (string, error)

	mu       sync.Mutex
	requests []provider.Request
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) Generate(ctx context.Context, req provider.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.respond(req)
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGenerator) LastRequest(t *testing.T) provider.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

var chunkIDPattern = regexp.MustCompile(`chunkId should be "([^"]+)"`)

func chunkIDFromPrompt(prompt string) string {
	m := chunkIDPattern.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	return m[1]
}

// echoChunkGenerator returns a valid analysis that echoes the pinned chunk id with the given total.
func echoChunkGenerator(total int) *fakeGenerator {
	return &fakeGenerator{respond: func(req provider.Request) (string, error) {
		return chunkJSON(chunkIDFromPrompt(req.Prompt), total, 2), nil
	}}
}

func chunkJSON(chunkID string, total, frequency int) string {
	a := ChunkAnalysis{
		ChunkID:            chunkID,
		TotalPostsAnalyzed: total,
		PainPoints: []PainPoint{{
			Category:         "Performance",
			Description:      "Uploads stall on large mixes",
			Severity:         SeverityHigh,
			Frequency:        frequency,
			ExampleQuotes:    []string{"upload stuck at 99%"},
			SuggestedFeature: "Resumable uploads",
		}},
		TopThemes:        []string{"uploads", "playback"},
		OverallSentiment: SentimentNegative,
	}
	b, err := json.Marshal(a)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// writeCSV writes header plus rows to dir/name and returns the path.
func writeCSV(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return p
}

func numberedRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i), fmt.Sprintf("post number %d", i)}
	}
	return rows
}

func readCSVRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	require.NoError(t, err)
	return recs
}

// writeChunks writes n two-column chunk files of rowsPerChunk rows into dir.
func writeChunks(t *testing.T, dir string, n, rowsPerChunk int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = writeCSV(t, dir, ChunkFileName("posts", i), []string{"id", "content"}, numberedRows(rowsPerChunk))
	}
	return paths
}
