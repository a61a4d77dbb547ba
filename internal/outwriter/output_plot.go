package outwriter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

const plotBar = "█"

// plotRow is one labeled bar.
type plotRow struct {
	name  string
	value float64
}

// writePlot draws one horizontal bar per project, scaled to the highest average.
// Bars are colored by score label.
func writePlot(w io.Writer, summaries []schema.ProjectSummary, cfg *contract.Config, fmtFloat func(float64) string) error {
	rows := make([]plotRow, len(summaries))
	for i, s := range summaries {
		rows[i] = plotRow{name: s.Project, value: s.Average}
	}
	var paint func(string, float64) string
	if cfg.UseColors {
		paint = func(bar string, v float64) string { return contract.GetLabelColor(v).Sprint(bar) }
	}
	return writeBars(w, rows, cfg, fmtFloat, paint)
}

// writeBars draws one horizontal bar per row, scaled to the highest value.
// Non-positive values get an empty bar. A nil paint leaves bars uncolored.
func writeBars(w io.Writer, rows []plotRow, cfg *contract.Config, fmtFloat func(float64) string, paint func(string, float64) string) error {
	if len(rows) == 0 {
		return nil
	}

	nameWidth := 0
	top := 0.0
	for _, r := range rows {
		nameWidth = max(nameWidth, len([]rune(r.name)))
		top = math.Max(top, r.value)
	}
	nameWidth = min(nameWidth, GetMaxProjectWidth(cfg))
	barWidth := getPlotBarWidth(cfg, nameWidth)

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, r := range rows {
		cells := 0
		if top > 0 && r.value > 0 {
			cells = int(math.Round(r.value / top * float64(barWidth)))
		}
		bar := strings.Repeat(plotBar, cells)
		if paint != nil {
			bar = paint(bar, r.value)
		}
		name := contract.TruncateText(r.name, nameWidth)
		if _, err := fmt.Fprintf(w, "%-*s │ %s %s\n", nameWidth, name, bar, fmtFloat(r.value)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
