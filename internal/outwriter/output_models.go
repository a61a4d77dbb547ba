package outwriter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

// PrintModelList writes one model name per line, or a JSON array.
func PrintModelList(names []string, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if names == nil {
				names = []string{}
			}
			return writeJSON(w, names)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		if len(names) == 0 {
			_, err := fmt.Fprintln(w, "No quality models found.")
			return err
		}
		for _, name := range names {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	}, "Wrote text")
}

// PrintModel writes a model as an indented tree, or as a JSON outline.
func PrintModel(model *schema.QualityModel, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model.Outline())
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeModelTree(w, model)
	}, "Wrote text")
}

// writeModelTree prints goals, attributes and metrics. Goals already printed
// are shown by name only so cyclic models terminate.
func writeModelTree(w io.Writer, model *schema.QualityModel) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📐 %s\n", model.Name)
	if model.Description != "" {
		fmt.Fprintf(&b, "   %s\n", model.Description)
	}

	printed := make(map[*schema.Goal]bool)
	seen := make(map[*schema.Attribute]bool)
	var goal func(g *schema.Goal, depth int)
	goal = func(g *schema.Goal, depth int) {
		indent := strings.Repeat("  ", depth)
		if printed[g] {
			fmt.Fprintf(&b, "%s🎯 %s (see above)\n", indent, g.Name)
			return
		}
		printed[g] = true
		fmt.Fprintf(&b, "%s🎯 %s\n", indent, g.Name)
		for _, a := range g.Attributes {
			writeAttribute(&b, a, depth+1, seen)
		}
		for _, sg := range g.Subgoals {
			goal(sg, depth+1)
		}
	}
	for _, g := range model.Goals {
		goal(g, 1)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeAttribute(b *strings.Builder, a *schema.Attribute, depth int, seen map[*schema.Attribute]bool) {
	indent := strings.Repeat("  ", depth)
	if seen[a] {
		fmt.Fprintf(b, "%s🔹 %s (see above)\n", indent, a.Name)
		return
	}
	seen[a] = true
	fmt.Fprintf(b, "%s🔹 %s\n", indent, a.Name)
	for _, m := range a.Metrics {
		fmt.Fprintf(b, "%s  📏 %s%s\n", indent, m.Name, describeMetric(m))
	}
	for _, f := range a.Factoids {
		fmt.Fprintf(b, "%s  💡 %s\n", indent, f)
	}
	for _, sub := range a.Subattributes {
		writeAttribute(b, sub, depth+1, seen)
	}
}

// describeMetric summarizes a metric's data binding and thresholds.
func describeMetric(m *schema.Metric) string {
	var parts []string
	if m.Data != nil {
		parts = append(parts, fmt.Sprintf("%s/%s", m.Data.Implementation, schema.NormalizeCalculationType(m.Data.CalculationType)))
	} else {
		parts = append(parts, "no data")
	}
	if m.Thresholds != "" {
		parts = append(parts, "thresholds "+m.Thresholds)
	}
	if m.Reverse {
		parts = append(parts, "reverse")
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

// PrintModelStoreStatus prints model store status information.
func PrintModelStoreStatus(w io.Writer, status schema.ModelStoreStatus) {
	_, _ = fmt.Fprintf(w, "Model Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Models: %d\n", status.TotalModels)
	printTableSizes(w, status.TableSizes)
}

// PrintHistoryStatus prints run history status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %s\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Total Scores: %d\n", status.TotalScores)
	}
	printTableSizes(w, status.TableSizes)
}

func printTableSizes(w io.Writer, sizes map[string]int64) {
	if len(sizes) == 0 {
		return
	}
	tables := make([]string, 0, len(sizes))
	for table := range sizes {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, sizes[table])
	}
}
