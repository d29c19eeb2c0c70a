package painpoints

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
)

const (
	FinalJSONFile     = "final_analysis.json"
	FinalMarkdownFile = "final_analysis.md"
)

// ReportOptions configures WriteFinalReport.
type ReportOptions struct {
	// Now stamps the Markdown report (defaults to time.Now).
	Now func() time.Time
}

// ReportPaths are the files written by WriteFinalReport.
type ReportPaths struct {
	JSON     string
	Markdown string
}

// WriteFinalReport writes analysis verbatim as JSON and as a Markdown report into resultsDir,
// replacing any previous report.
func WriteFinalReport(analysis FinalAnalysis, resultsDir string, opts ReportOptions) (ReportPaths, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	paths := ReportPaths{
		JSON:     filepath.Join(resultsDir, FinalJSONFile),
		Markdown: filepath.Join(resultsDir, FinalMarkdownFile),
	}
	if err := fileutils.WriteJSONFileAtomic(paths.JSON, analysis, true); err != nil {
		return ReportPaths{}, fmt.Errorf("write %s: %w", FinalJSONFile, err)
	}
	md := RenderMarkdownReport(analysis, now())
	if err := fileutils.WriteFileAtomic(paths.Markdown, []byte(md), 0o644); err != nil {
		return ReportPaths{}, fmt.Errorf("write %s: %w", FinalMarkdownFile, err)
	}
	return paths, nil
}

// SortedByPriority returns a copy of points ordered by descending priority.
// Equal priorities keep their input order.
func SortedByPriority(points []ConsolidatedPainPoint) []ConsolidatedPainPoint {
	out := make([]ConsolidatedPainPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// RenderMarkdownReport renders the human-readable report. Pain points are listed by descending
// priority; feature ideas keep the model's order.
func RenderMarkdownReport(analysis FinalAnalysis, generatedAt time.Time) string {
	sorted := SortedByPriority(analysis.ConsolidatedPainPoints)

	var b strings.Builder
	b.WriteString("# Pain Points Analysis Report\n\n")

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- **Total Posts Analyzed:** %s\n", humanize.Comma(int64(analysis.TotalPostsAnalyzed)))
	fmt.Fprintf(&b, "- **Pain Points Identified:** %d\n", len(analysis.ConsolidatedPainPoints))
	fmt.Fprintf(&b, "- **Feature Ideas Generated:** %d\n\n", len(analysis.TopFeatureIdeas))

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(strings.TrimSpace(analysis.ExecutiveSummary))
	b.WriteString("\n\n")

	b.WriteString("## Consolidated Pain Points\n\n")
	if len(sorted) == 0 {
		b.WriteString("_No pain points were identified._\n")
	} else {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Priority", "Category", "Description", "Severity", "Mentions"})
		for _, pp := range sorted {
			t.AppendRow(table.Row{pp.Priority, pp.Category, pp.Description, pp.Severity, humanize.Comma(int64(pp.TotalMentions))})
		}
		b.WriteString(t.RenderMarkdown())
		b.WriteString("\n")
	}

	b.WriteString("\n### Detailed Pain Points\n\n")
	for _, pp := range sorted {
		fmt.Fprintf(&b, "#### %s: %s\n", pp.Category, pp.Description)
		fmt.Fprintf(&b, "- **Severity:** %s\n", pp.Severity)
		fmt.Fprintf(&b, "- **Total Mentions:** %s\n", humanize.Comma(int64(pp.TotalMentions)))
		fmt.Fprintf(&b, "- **Priority Score:** %d/10\n", pp.Priority)
		b.WriteString("- **Suggested Features:**\n")
		for _, f := range pp.SuggestedFeatures {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Top Feature Ideas\n\n")
	for i, f := range analysis.TopFeatureIdeas {
		fmt.Fprintf(&b, "### %d. %s\n", i+1, f.Name)
		fmt.Fprintf(&b, "- **Description:** %s\n", f.Description)
		fmt.Fprintf(&b, "- **Estimated Impact:** %s\n", f.EstimatedImpact)
		fmt.Fprintf(&b, "- **Addresses Pain Points:** %s\n\n", strings.Join(f.AddressesPainPoints, ", "))
	}

	fmt.Fprintf(&b, "---\n*Report generated on %s*\n", generatedAt.UTC().Format(time.RFC3339))
	return b.String()
}
