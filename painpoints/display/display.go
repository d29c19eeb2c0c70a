// Package display prints analyses as terminal tables.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
)

const ruleWidth = 100

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type column struct {
	header   string
	widthMax int
	align    columnAlignment
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c.header
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, c := range columns {
		align := text.AlignLeft
		if c.align == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         c.widthMax,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// ChunkAnalysis prints one chunk's summary line and its pain points.
func ChunkAnalysis(w io.Writer, a painpoints.ChunkAnalysis) {
	fmt.Fprintf(w, "\nAnalysis Results for: %s\n", a.ChunkID)
	fmt.Fprintf(w, "  Posts analyzed: %s\n", humanize.Comma(int64(a.TotalPostsAnalyzed)))
	fmt.Fprintf(w, "  Overall sentiment: %s\n", a.OverallSentiment)
	fmt.Fprintf(w, "  Top themes: %s\n", strings.Join(a.TopThemes, ", "))

	columns := []column{
		{header: "Category", widthMax: 15},
		{header: "Description", widthMax: 35},
		{header: "Severity", widthMax: 10},
		{header: "Frequency", widthMax: 10, align: alignRight},
		{header: "Suggested Feature", widthMax: 35},
	}
	rows := make([][]string, 0, len(a.PainPoints))
	for _, p := range a.PainPoints {
		rows = append(rows, []string{
			p.Category,
			p.Description,
			string(p.Severity),
			strconv.Itoa(p.Frequency),
			p.SuggestedFeature,
		})
	}
	fmt.Fprintln(w, renderTable(columns, rows))
}

// FinalAnalysis prints the consolidated report: summary, pain points by priority and feature ideas.
func FinalAnalysis(w io.Writer, a painpoints.FinalAnalysis) {
	rule := strings.Repeat("=", ruleWidth)
	thin := strings.Repeat("-", ruleWidth)

	fmt.Fprintf(w, "\n%s\nFINAL ANALYSIS REPORT\n%s\n", rule, rule)
	fmt.Fprintf(w, "\nTotal Posts Analyzed: %s\n", humanize.Comma(int64(a.TotalPostsAnalyzed)))

	fmt.Fprintf(w, "\nEXECUTIVE SUMMARY\n%s\n%s\n", thin, a.ExecutiveSummary)

	fmt.Fprintf(w, "\nCONSOLIDATED PAIN POINTS (by priority)\n%s\n", thin)
	ppColumns := []column{
		{header: "Priority", widthMax: 10, align: alignRight},
		{header: "Category", widthMax: 15},
		{header: "Description", widthMax: 30},
		{header: "Severity", widthMax: 10},
		{header: "Mentions", widthMax: 10, align: alignRight},
		{header: "Suggested Features", widthMax: 35},
	}
	var ppRows [][]string
	for _, pp := range painpoints.SortedByPriority(a.ConsolidatedPainPoints) {
		ppRows = append(ppRows, []string{
			strconv.Itoa(pp.Priority),
			pp.Category,
			pp.Description,
			string(pp.Severity),
			humanize.Comma(int64(pp.TotalMentions)),
			strings.Join(firstN(pp.SuggestedFeatures, 2), "; "),
		})
	}
	fmt.Fprintln(w, renderTable(ppColumns, ppRows))

	fmt.Fprintf(w, "\nTOP FEATURE IDEAS\n%s\n", thin)
	fColumns := []column{
		{header: "#", widthMax: 5, align: alignRight},
		{header: "Feature", widthMax: 20},
		{header: "Description", widthMax: 40},
		{header: "Impact", widthMax: 10},
		{header: "Addresses", widthMax: 30},
	}
	var fRows [][]string
	for i, f := range a.TopFeatureIdeas {
		fRows = append(fRows, []string{
			strconv.Itoa(i + 1),
			f.Name,
			f.Description,
			string(f.EstimatedImpact),
			strings.Join(firstN(f.AddressesPainPoints, 3), ", "),
		})
	}
	fmt.Fprintln(w, renderTable(fColumns, fRows))
	fmt.Fprintf(w, "\n%s\n", rule)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
