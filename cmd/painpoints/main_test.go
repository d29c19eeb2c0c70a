package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/provider"
)

func envFunc(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

var pinnedPattern = regexp.MustCompile(`chunkId should be "([^"]+)" and totalPostsAnalyzed should be (\d+)`)

// scriptedGenerator answers chunk and final requests with valid documents.
type scriptedGenerator struct {
	mu         sync.Mutex
	calls      int
	finalCalls int
	finalErr   error
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func (g *scriptedGenerator) Generate(_ context.Context, req provider.Request) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	var doc any
	switch req.Schema.Name {
	case "ChunkAnalysis":
		m := pinnedPattern.FindStringSubmatch(req.Prompt)
		if m == nil {
			return "", errors.New("prompt has no pinned values")
		}
		total, _ := strconv.Atoi(m[2])
		doc = painpoints.ChunkAnalysis{
			ChunkID:            m[1],
			TotalPostsAnalyzed: total,
			PainPoints: []painpoints.PainPoint{{
				Category: "UX", Description: "Search is slow", Severity: painpoints.SeverityHigh,
				Frequency: 4, ExampleQuotes: []string{"takes forever"}, SuggestedFeature: "Faster search",
			}},
			TopThemes:        []string{"search"},
			OverallSentiment: painpoints.SentimentNegative,
		}
	case "FinalAnalysis":
		g.mu.Lock()
		g.finalCalls++
		g.mu.Unlock()
		if g.finalErr != nil {
			return "", g.finalErr
		}
		doc = painpoints.FinalAnalysis{
			TotalPostsAnalyzed: 1,
			ConsolidatedPainPoints: []painpoints.ConsolidatedPainPoint{{
				Category: "UX", Description: "Search is slow", Severity: painpoints.SeverityHigh,
				TotalMentions: 12, SuggestedFeatures: []string{"Faster search"}, Priority: 9,
			}},
			TopFeatureIdeas: []painpoints.FeatureIdea{{
				Name: "Search index", Description: "Index posts", AddressesPainPoints: []string{"Search is slow"}, EstimatedImpact: painpoints.ImpactHigh,
			}},
			ExecutiveSummary: "Search dominates.",
		}
	default:
		return "", fmt.Errorf("unexpected schema %q", req.Schema.Name)
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestContext(gen provider.Generator, env map[string]string) (*commandContext, *bytes.Buffer) {
	var stdout bytes.Buffer
	cc := newCommandContext(&stdout, io.Discard, envFunc(env))
	cc.newGenerator = func(context.Context, provider.Options) (provider.Generator, error) { return gen, nil }
	cc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return cc, &stdout
}

func writeInputCSV(t *testing.T, dir string, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,content\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,post number %d\n", i, i)
	}
	p := filepath.Join(dir, "posts.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

// resolveFor parses args against the matching subcommand and resolves the config.
func resolveFor(t *testing.T, cc *commandContext, args ...string) error {
	t.Helper()
	root := newRootCommand(cc)
	sub, rest, err := root.Find(args)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if err := sub.ParseFlags(rest); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cc.resolve(sub)
}

func TestResolve_Layering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "painpoints.toml")
	toml := "provider = \"openai\"\nmodel = \"file-model\"\nconcurrency = 4\ntimeout_seconds = 30\ncommunity = \"synth forum\"\napi_key = \"file-key\"\n"
	if err := os.WriteFile(cfgPath, []byte(toml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cc, _ := newTestContext(&scriptedGenerator{}, map[string]string{
		"PAINPOINTS_MODEL": "env-model",
		"OPENAI_API_KEY":   "env-key",
	})
	if err := resolveFor(t, cc, "analyze", "--config", cfgPath, "--concurrency", "2", "--log-format", "json", "chunks"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := cc.cfg
	if got.Provider != "openai" || got.Model != "env-model" {
		t.Fatalf("Provider=%q Model=%q", got.Provider, got.Model)
	}
	if got.Concurrency != 2 {
		t.Fatalf("Concurrency=%d, want 2 (flag beats file)", got.Concurrency)
	}
	if got.Timeout != 30*time.Second {
		t.Fatalf("Timeout=%v", got.Timeout)
	}
	if got.Community != "synth forum" {
		t.Fatalf("Community=%q", got.Community)
	}
	if got.APIKey != "env-key" {
		t.Fatalf("APIKey=%q, want env value over file", got.APIKey)
	}
	if got.ChunkSize != defaultChunkSize {
		t.Fatalf("ChunkSize=%d", got.ChunkSize)
	}
}

func TestResolve_DefaultsAndFlagOverrides(t *testing.T) {
	t.Parallel()

	cc, _ := newTestContext(&scriptedGenerator{}, map[string]string{"GEMINI_API_KEY": "g"})
	if err := resolveFor(t, cc, "split", "--log-format", "json", "in.csv"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cc.cfg.Provider != provider.ProviderGemini || cc.cfg.Model != defaultGeminiModel || cc.cfg.APIKey != "g" {
		t.Fatalf("unexpected defaults %+v", cc.cfg)
	}
	if cc.cfg.Timeout != painpoints.DefaultCallTimeout || cc.cfg.Concurrency != 1 {
		t.Fatalf("Timeout=%v Concurrency=%d", cc.cfg.Timeout, cc.cfg.Concurrency)
	}

	cc, _ = newTestContext(&scriptedGenerator{}, map[string]string{"OPENAI_API_KEY": "env"})
	if err := resolveFor(t, cc, "run", "--provider", "OpenAI", "--api-key", "flag", "--chunk-size", "7", "--log-format", "json", "in.csv"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cc.cfg.Provider != provider.ProviderOpenAI || cc.cfg.Model != defaultOpenAIModel {
		t.Fatalf("Provider=%q Model=%q", cc.cfg.Provider, cc.cfg.Model)
	}
	if cc.cfg.APIKey != "flag" || cc.cfg.ChunkSize != 7 {
		t.Fatalf("APIKey=%q ChunkSize=%d", cc.cfg.APIKey, cc.cfg.ChunkSize)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	err := loadConfigFile(filepath.Join(t.TempDir(), "missing.toml"), &cfg)
	var pe *painpoints.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%v, want PreconditionError", err)
	}

	p := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(p, []byte("modle = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := loadConfigFile(p, &cfg); err == nil || !strings.Contains(err.Error(), "modle") {
		t.Fatalf("err=%v, want unknown key error", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := defaultConfig()
	valid.normalize()
	if err := valid.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	cases := map[string]func(*Config){
		"provider":   func(c *Config) { c.Provider = "claude" },
		"chunk size": func(c *Config) { c.ChunkSize = 0 },
		"timeout":    func(c *Config) { c.Timeout = 0 },
		"negative":   func(c *Config) { c.Concurrency = -1 },
		"rps":        func(c *Config) { c.RPS = -0.5 },
		"log format": func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		c := valid
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestExecute_RunEndToEndAndResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeInputCSV(t, dir, 250)
	outDir := filepath.Join(dir, "out")
	gen := &scriptedGenerator{}
	env := map[string]string{"GEMINI_API_KEY": "k"}

	cc, stdout := newTestContext(gen, env)
	code := execute(context.Background(), cc, []string{"run", input, "--output-dir", outDir, "--chunk-size", "100", "--log-format", "json"})
	if code != 0 {
		t.Fatalf("exit=%d stdout=%s", code, stdout.String())
	}
	if gen.Calls() != 4 {
		t.Fatalf("calls=%d, want 3 chunks + 1 combine", gen.Calls())
	}
	out := stdout.String()
	for _, want := range []string{
		"chunks_written=3 rows=250",
		"chunks_total=3 analyzed=3 reused=0 failed=0",
		"Analysis Results for: posts_chunk_0002",
		"FINAL ANALYSIS REPORT",
		"pain_points=1 feature_ideas=1 total_posts=250",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("stdout missing %q:\n%s", want, out)
		}
	}

	var final painpoints.FinalAnalysis
	b, err := os.ReadFile(filepath.Join(outDir, resultsSubdir, painpoints.FinalJSONFile))
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if err := json.Unmarshal(b, &final); err != nil {
		t.Fatalf("decode final: %v", err)
	}
	if final.TotalPostsAnalyzed != 250 {
		t.Fatalf("TotalPostsAnalyzed=%d, want 250", final.TotalPostsAnalyzed)
	}
	md, err := os.ReadFile(filepath.Join(outDir, resultsSubdir, painpoints.FinalMarkdownFile))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "*Report generated on 2026-01-02T03:04:05Z*") {
		t.Fatalf("markdown footer missing:\n%s", md)
	}

	cc, stdout = newTestContext(gen, env)
	code = execute(context.Background(), cc, []string{"run", "--skip-split", "--output-dir", outDir, "--log-format", "json"})
	if code != 0 {
		t.Fatalf("resume exit=%d", code)
	}
	if gen.Calls() != 5 {
		t.Fatalf("calls=%d, want only the combine call on resume", gen.Calls())
	}
	if !strings.Contains(stdout.String(), "chunks_total=3 analyzed=0 reused=3 failed=0") {
		t.Fatalf("resume stdout:\n%s", stdout.String())
	}
}

func TestExecute_SplitAnalyzeCombine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeInputCSV(t, dir, 30)
	outDir := filepath.Join(dir, "export[2024]")
	gen := &scriptedGenerator{}
	env := map[string]string{"GOOGLE_GENERATIVE_AI_API_KEY": "k"}

	steps := [][]string{
		{"split", input, "--output-dir", outDir, "--chunk-size", "10"},
		{"analyze", filepath.Join(outDir, chunksSubdir), "--concurrency", "2"},
		{"combine", filepath.Join(outDir, resultsSubdir)},
	}
	for _, args := range steps {
		cc, stdout := newTestContext(gen, env)
		if code := execute(context.Background(), cc, append(args, "--log-format", "json")); code != 0 {
			t.Fatalf("%s exit=%d stdout=%s", args[0], code, stdout.String())
		}
	}
	if gen.Calls() != 4 {
		t.Fatalf("calls=%d, want 4", gen.Calls())
	}
	if _, err := os.Stat(filepath.Join(outDir, resultsSubdir, painpoints.FinalMarkdownFile)); err != nil {
		t.Fatalf("final report: %v", err)
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeInputCSV(t, dir, 5)
	withKey := map[string]string{"GEMINI_API_KEY": "k"}

	cases := []struct {
		name string
		env  map[string]string
		gen  *scriptedGenerator
		args []string
		want int
	}{
		{name: "unknown flag", env: withKey, args: []string{"run", input, "--bogus"}, want: 2},
		{name: "missing arg", env: withKey, args: []string{"split"}, want: 2},
		{name: "bad provider", env: withKey, args: []string{"split", input, "--provider", "nope"}, want: 2},
		{name: "missing input", env: withKey, args: []string{"run", filepath.Join(dir, "nope.csv"), "--output-dir", filepath.Join(dir, "o1")}, want: 2},
		{name: "missing key", env: map[string]string{}, args: []string{"run", input, "--output-dir", filepath.Join(dir, "o2")}, want: 2},
		{name: "skip analyze without results", env: withKey, args: []string{"run", input, "--skip-analyze", "--output-dir", filepath.Join(dir, "o3")}, want: 2},
		{name: "no chunks", env: withKey, args: []string{"analyze", filepath.Join(dir, "empty")}, want: 2},
		{name: "combine model failure", env: withKey, gen: &scriptedGenerator{finalErr: errors.New("503")}, args: []string{"run", input, "--output-dir", filepath.Join(dir, "o4")}, want: 1},
	}
	for _, tc := range cases {
		gen := tc.gen
		if gen == nil {
			gen = &scriptedGenerator{}
		}
		cc, _ := newTestContext(gen, tc.env)
		got := execute(context.Background(), cc, append(tc.args, "--log-format", "json"))
		if got != tc.want {
			t.Fatalf("%s: exit=%d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestExecute_MissingKeyMakesNoCalls(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeInputCSV(t, dir, 5)
	gen := &scriptedGenerator{}
	var stderr bytes.Buffer
	cc := newCommandContext(io.Discard, &stderr, envFunc(nil))
	cc.newGenerator = func(context.Context, provider.Options) (provider.Generator, error) { return gen, nil }

	code := execute(context.Background(), cc, []string{"run", input, "--output-dir", filepath.Join(dir, "out"), "--log-format", "json"})
	if code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	if gen.Calls() != 0 {
		t.Fatalf("calls=%d", gen.Calls())
	}
	if !strings.Contains(stderr.String(), "GOOGLE_GENERATIVE_AI_API_KEY") {
		t.Fatalf("stderr does not name the variable: %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output dir created before preconditions passed: %v", err)
	}
}
