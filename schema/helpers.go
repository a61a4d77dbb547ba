package schema

import (
	"strconv"
	"strings"
	"unicode"
)

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// SafeFileName turns a project name into something usable as a file name component.
// Letters, digits, dots, dashes and underscores are kept; everything else becomes '_'.
func SafeFileName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	// Avoid names that resolve to the current or parent directory.
	if strings.Trim(out, ".") == "" {
		return strings.Repeat("_", len(out))
	}
	return out
}

// ScoreLabel returns the level name for a score on a metric with the given
// number of thresholds. Scales other than four thresholds fall back to "n/N".
func ScoreLabel(score *int, thresholds int) string {
	if score == nil {
		return "-"
	}
	if thresholds == len(ScoreLevels)-1 && *score >= 0 && *score < len(ScoreLevels) {
		return ScoreLevels[*score]
	}
	return strconv.Itoa(*score) + "/" + strconv.Itoa(thresholds)
}

