package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/prosoul/schema"
)

// CSV export file names.
const (
	AssessmentCSVName   = "assessment_csv.csv"
	assessmentCSVPrefix = "assessment_csv_"
)

// WriteAssessmentCSV writes every leaf of pa to dir/assessment_csv.csv and
// each project's rows to dir/assessment_csv_<project>.csv. Rows have the
// columns goal, attribute, metric, project, calculation_type, raw_value,
// score and no header. Null values are written as empty cells.
func WriteAssessmentCSV(dir string, pa schema.ProjectAssessment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	if err := writeCSVFile(filepath.Join(dir, AssessmentCSVName), pa.Records()); err != nil {
		return err
	}

	used := make(map[string]bool)
	for _, project := range pa.Projects() {
		name := uniqueName(schema.SafeFileName(project), used)
		records := schema.ProjectAssessment{project: pa[project]}.Records()
		if err := writeCSVFile(filepath.Join(dir, assessmentCSVPrefix+name+".csv"), records); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote CSV for %d projects to %s\n", len(pa), dir)
	return nil
}

// uniqueName returns base, or base with the lowest free numeric suffix, and
// marks the result as used.
func uniqueName(base string, used map[string]bool) string {
	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	used[name] = true
	return name
}

func writeCSVFile(path string, records []schema.ScoreRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return writeAndClose(file, path, records)
}

// writeAndClose writes records to wc and closes it, reporting a failed close
// when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, path string, records []schema.ScoreRecord) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := WriteAssessmentRows(wc, records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteAssessmentRows writes records as headerless CSV rows.
func WriteAssessmentRows(w io.Writer, records []schema.ScoreRecord) error {
	cw := csv.NewWriter(w)
	for _, r := range records {
		row := []string{
			r.Goal,
			r.Attribute,
			r.Metric,
			r.Project,
			string(r.CalculationType),
			formatRaw(r.RawValue),
			formatScore(r.Score),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
