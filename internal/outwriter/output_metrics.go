package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintMetricList outputs the metrics of a model as a table, CSV or JSON.
func PrintMetricList(model string, entries []schema.MetricEntry, cfg *contract.Config) error {
	if entries == nil {
		entries = []schema.MetricEntry{}
	}
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Model   string               `json:"model"`
				Metrics []schema.MetricEntry `json:"metrics"`
			}{model, entries})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMetricListCSV(w, entries)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errors.New("parquet output is not supported for metric listings")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMetricListText(w, model, entries)
		}, "Wrote table")
	}
}

func writeMetricListText(w io.Writer, model string, entries []schema.MetricEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "No metrics in %s.\n", model)
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Goal", "Attribute", "Metric", "Implementation", "Calculation"})

	var data [][]string
	for _, e := range entries {
		impl := e.Implementation
		if impl == "" {
			impl = "-"
		}
		data = append(data, []string{e.Goal, e.Attribute, e.Metric, impl, string(e.CalculationType)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d metrics in %s\n", len(entries), model)
	return err
}

func writeMetricListCSV(w io.Writer, entries []schema.MetricEntry) error {
	header := []string{"goal", "attribute", "metric", "implementation", "calculation_type"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range entries {
			if err := cw.Write([]string{e.Goal, e.Attribute, e.Metric, e.Implementation, string(e.CalculationType)}); err != nil {
				return err
			}
		}
		return nil
	})
}

// PrintMetricStats outputs per-project metric values with their summary line.
func PrintMetricStats(stats []schema.MetricStats, cfg *contract.Config) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			out := make([]schema.MetricStats, len(stats))
			for i, st := range stats {
				if st.Samples == nil {
					st.Samples = []schema.ProjectSample{}
				}
				out[i] = st
			}
			return writeJSON(w, out)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMetricStatsCSV(w, stats, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errors.New("parquet output is not supported for metric stats")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			for _, st := range stats {
				if err := writeMetricStatsText(w, st, cfg, fmtFloat); err != nil {
					return err
				}
			}
			return nil
		}, "Wrote table")
	}
}

// writeMetricStatsText prints the project count, a value table, the summary
// line and, when enabled, a bar per project.
func writeMetricStatsText(w io.Writer, st schema.MetricStats, cfg *contract.Config, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "Total number of projects for %s: %d\n", st.Metric, len(st.Samples)); err != nil {
		return err
	}
	if len(st.Samples) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Project", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	maxWidth := GetMaxProjectWidth(cfg)

	var data [][]string
	for i, s := range st.Samples {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(s.Project, maxWidth),
			fmtFloat(s.Value),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, formatStatsLine(st.Stats, fmtFloat)); err != nil {
		return err
	}

	if cfg.Plot {
		rows := make([]plotRow, len(st.Samples))
		for i, s := range st.Samples {
			rows[i] = plotRow{name: s.Project, value: s.Value}
		}
		return writeBars(w, rows, cfg, fmtFloat, nil)
	}
	return nil
}

func writeMetricStatsCSV(w io.Writer, stats []schema.MetricStats, fmtFloat func(float64) string) error {
	header := []string{"metric", "project", "value"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, st := range stats {
			for _, s := range st.Samples {
				if err := cw.Write([]string{st.Metric, s.Project, fmtFloat(s.Value)}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
