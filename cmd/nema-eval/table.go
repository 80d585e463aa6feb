package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/store"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// metricColumns returns headers and alignments for leading text columns
// followed by one right-aligned column per metric.
func metricColumns(lead []string, metrics []evaluation.Metric) ([]string, []columnAlignment) {
	headers := append([]string(nil), lead...)
	aligns := make([]columnAlignment, len(lead))
	for _, m := range metrics {
		headers = append(headers, string(m))
		aligns = append(aligns, alignRight)
	}
	return headers, aligns
}

func metricCells(r evaluation.Record, metrics []evaluation.Metric) []string {
	cells := make([]string, len(metrics))
	for i, m := range metrics {
		v, ok := r[m]
		if !ok {
			cells[i] = "-"
			continue
		}
		cells[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}
	return cells
}

// writeResultSet renders rs as text tables or as indented JSON.
func writeResultSet(w io.Writer, rs *evaluation.ResultSet, format string, tracks bool) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs.Snapshot())
	}

	_, err := io.WriteString(w, renderResultSet(rs, tracks))
	return err
}

// renderResultSet renders the overall, per-fold and optionally per-track
// tables of a result set.
func renderResultSet(rs *evaluation.ResultSet, tracks bool) string {
	var b strings.Builder
	summaryMetrics := rs.SummaryMetrics()

	fmt.Fprintf(&b, "Run %s  experiment %s  task %s\n\n", rs.RunID(), rs.Experiment(), rs.Task())

	headers, aligns := metricColumns([]string{"Job"}, summaryMetrics)
	var rows [][]string
	for _, jobID := range rs.Jobs() {
		name, _ := rs.JobName(jobID)
		overall, _ := rs.Overall(jobID)
		rows = append(rows, append([]string{name}, metricCells(overall, summaryMetrics)...))
	}
	b.WriteString("Overall\n")
	b.WriteString(renderTable(headers, rows, aligns))
	b.WriteString("\n\n")

	headers, aligns = metricColumns([]string{"Job", "Fold", "Tracks"}, summaryMetrics)
	aligns[2] = alignRight
	rows = rows[:0]
	for _, jobID := range rs.Jobs() {
		name, _ := rs.JobName(jobID)
		for _, fold := range rs.Folds() {
			summary, _ := rs.FoldRecord(jobID, fold)
			expected, evaluated, _ := rs.Coverage(jobID, fold)
			row := []string{name, fold, fmt.Sprintf("%d/%d", evaluated, expected)}
			rows = append(rows, append(row, metricCells(summary, summaryMetrics)...))
		}
	}
	b.WriteString("Folds\n")
	b.WriteString(renderTable(headers, rows, aligns))
	b.WriteString("\n")

	if !tracks {
		return b.String()
	}

	metrics := rs.Metrics()
	headers, aligns = metricColumns([]string{"Job", "Fold", "Track"}, metrics)
	rows = rows[:0]
	for _, jobID := range rs.Jobs() {
		name, _ := rs.JobName(jobID)
		for _, fold := range rs.Folds() {
			scores, _ := rs.TrackRecords(jobID, fold)
			for _, s := range scores {
				row := []string{name, fold, s.TrackID}
				rows = append(rows, append(row, metricCells(s.Metrics, metrics)...))
			}
		}
	}
	b.WriteString("\nTracks\n")
	b.WriteString(renderTable(headers, rows, aligns))
	b.WriteString("\n")

	return b.String()
}

// renderSummaries renders the stored run list.
func renderSummaries(list []store.Summary) string {
	headers := []string{"Run", "Experiment", "Task", "Jobs", "Created"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}

	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.RunID,
			s.Experiment,
			s.Task,
			strconv.Itoa(s.Jobs),
			s.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(headers, rows, aligns)
}
