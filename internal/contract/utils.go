package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Average score label constants.
const (
	StrongValue   = "Strong"   // average of 3 or more
	GoodValue     = "Good"     // average of 2 or more
	WeakValue     = "Weak"     // average of 1 or more
	CriticalValue = "Critical" // below 1
)

// Color variables for console output.
var (
	StrongColor   = color.New(color.FgGreen, color.Bold) // StrongColor marks healthy projects.
	GoodColor     = color.New(color.FgCyan)              // GoodColor marks acceptable projects.
	WeakColor     = color.New(color.FgYellow)            // WeakColor marks projects that need attention.
	CriticalColor = color.New(color.FgRed, color.Bold)   // CriticalColor marks failing projects.
)

// GetPlainLabel returns a plain text label for an average score on the
// 0..4 threshold scale. This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(average float64) string {
	switch {
	case average >= 3:
		return StrongValue
	case average >= 2:
		return GoodValue
	case average >= 1:
		return WeakValue
	default:
		return CriticalValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(average float64) string {
	return GetLabelColor(average).Sprint(GetPlainLabel(average))
}

// GetLabelColor returns the console color of the label for an average score.
func GetLabelColor(average float64) *color.Color {
	switch GetPlainLabel(average) {
	case StrongValue:
		return StrongColor
	case GoodValue:
		return GoodColor
	case WeakValue:
		return WeakColor
	default:
		return CriticalColor
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. Empty means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetModelDBFilePath returns the path to the SQLite DB file for model storage.
func GetModelDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".prosoul_models.db"
	}
	return filepath.Join(homeDir, ".prosoul_models.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".prosoul_history.db"
	}
	return filepath.Join(homeDir, ".prosoul_history.db")
}

// TruncateText truncates a string to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there's space for "..." and at least one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
