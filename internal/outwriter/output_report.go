package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/parquet"
	"github.com/huangsam/prosoul/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintReport outputs the assessment report, dispatching based on the output format configured.
func PrintReport(report schema.Report, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportCSV(w, report, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if err := parquet.WriteFile(parquet.ConvertReport(report, contract.GetPlainLabel), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeReportText(w, report, cfg, fmtFloat); err != nil {
				return err
			}
			if cfg.Plot {
				if err := writePlot(w, report.Summaries, cfg, fmtFloat); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(w, "Assessment of %s completed in %v with %d workers.\n", report.Model, duration.Round(time.Millisecond), cfg.Workers)
			return err
		}, "Wrote table")
	}
}

// writeReportText prints the per-project table for big_number reports or a
// single statistics line for stats reports.
func writeReportText(w io.Writer, report schema.Report, cfg *contract.Config, fmtFloat func(float64) string) error {
	if len(report.Summaries) == 0 {
		_, err := fmt.Fprintf(w, "No scores for %s in the selected range.\n", report.Model)
		return err
	}

	if report.Kind == schema.StatsReport {
		_, err := fmt.Fprintln(w, formatStatsLine(report.Stats, fmtFloat))
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Project", "Average", "Label", "Scored"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	maxWidth := GetMaxProjectWidth(cfg)

	var data [][]string
	for i, s := range report.Summaries {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(s.Project, maxWidth),
			fmtFloat(s.Average),
			label(s.Average),
			fmt.Sprintf("%d/%d", s.Scored, s.Metrics),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d projects (%s)\n", len(report.Summaries), formatStatsLine(report.Stats, fmtFloat))
	return err
}

// formatStatsLine renders the summary statistics on one line.
func formatStatsLine(st schema.ReportStats, fmtFloat func(float64) string) string {
	parts := []string{
		"max: " + fmtFloat(st.Max),
		"min: " + fmtFloat(st.Min),
		"mean: " + fmtFloat(st.Mean),
		"median: " + fmtFloat(st.Median),
		"stdev: " + fmtFloat(st.Stdev),
	}
	return strings.Join(parts, ", ")
}

// writeReportCSV writes the report summaries in CSV format.
func writeReportCSV(w io.Writer, report schema.Report, fmtFloat func(float64) string) error {
	header := []string{"rank", "model", "project", "average", "label", "scored", "metrics"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, s := range report.Summaries {
			rec := []string{
				strconv.Itoa(i + 1),
				report.Model,
				s.Project,
				fmtFloat(s.Average),
				contract.GetPlainLabel(s.Average),
				strconv.Itoa(s.Scored),
				strconv.Itoa(s.Metrics),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeReportJSON writes the report with a label next to each average.
func writeReportJSON(w io.Writer, report schema.Report) error {
	type jsonSummary struct {
		Rank  int    `json:"rank"`
		Label string `json:"label"`
		schema.ProjectSummary
	}
	type jsonReport struct {
		Kind      schema.ReportKind  `json:"kind"`
		Model     string             `json:"model"`
		Summaries []jsonSummary      `json:"summaries"`
		Stats     schema.ReportStats `json:"stats"`
	}

	out := jsonReport{Kind: report.Kind, Model: report.Model, Stats: report.Stats, Summaries: []jsonSummary{}}
	for i, s := range report.Summaries {
		out.Summaries = append(out.Summaries, jsonSummary{
			Rank:           i + 1,
			Label:          contract.GetPlainLabel(s.Average),
			ProjectSummary: s,
		})
	}
	return writeJSON(w, out)
}
