package main

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hupe1980/vemos"
	"github.com/hupe1980/vemos/matchindex"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/session"
)

func newTable(out io.Writer, header ...any) table.Writer {
	w := table.NewWriter()
	w.SetOutputMirror(out)
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row(header))
	return w
}

func rightAlign(cols ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight}
	}
	return cfgs
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

// printSummary writes the record count and one row per indexed matrix.
func printSummary(out io.Writer, s *vemos.State) {
	name := s.Name
	if name == "" {
		name = "(unsaved)"
	}
	fmt.Fprintf(out, "Session:  %s\n", name)
	fmt.Fprintf(out, "Records:  %d\n", s.Records.Len())
	switch {
	case s.DirectoryPath != "":
		fmt.Fprintf(out, "Source:   %s\n", s.DirectoryPath)
	case s.DescriptionPath != "":
		fmt.Fprintf(out, "Source:   %s\n", s.DescriptionPath)
	}
	if s.Matrices.Len() == 0 {
		fmt.Fprintln(out, "Matrices: none")
		return
	}

	t := newTable(out, "Matrix", "Kind", "Format", "Matches", "Non-matches", "AUC")
	t.SetColumnConfigs(rightAlign(4, 5, 6))
	for m := range s.Matrices.All() {
		matches, nonMatches, auc := 0, 0, math.NaN()
		if entry, ok := s.Index.Get(m.Name); ok {
			matches, nonMatches, _ = entry.Counts()
			if matches > 0 && nonMatches > 0 {
				auc = matchindex.AUC(matchindex.ROC(entry))
			}
		}
		t.AppendRow(table.Row{m.Name, m.Kind, m.Format, matches, nonMatches, formatScore(auc)})
	}
	t.Render()
}

// printStats writes the score summary of the given matrices.
func printStats(out io.Writer, names []string, summaries []matrix.Summary) {
	t := newTable(out, "Matrix", "Count", "Mean", "Median", "StdDev")
	t.SetColumnConfigs(rightAlign(2, 3, 4, 5))
	for i, s := range summaries {
		t.AppendRow(table.Row{names[i], s.Count, formatScore(s.Mean), formatScore(s.Median), formatScore(s.StdDev)})
	}
	t.Render()
}

// printSessions writes one row per stored session.
func printSessions(out io.Writer, infos []session.Info) {
	if len(infos) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return
	}
	t := newTable(out, "Session", "Version", "Created", "Size")
	t.SetColumnConfigs(rightAlign(2, 4))
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.Name,
			info.Version,
			humanize.Time(info.CreatedAt),
			humanize.Bytes(uint64(max(info.Size, 0))),
		})
	}
	t.Render()
}
