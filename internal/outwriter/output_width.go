package outwriter

import (
	"os"

	"github.com/huangsam/prosoul/internal/contract"
	"golang.org/x/term"
)

// terminalWidth returns the width override from cfg, the detected terminal
// width, or 80 when neither is available.
func terminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// GetMaxProjectWidth calculates the maximum width for project names in table
// output based on terminal width.
func GetMaxProjectWidth(cfg *contract.Config) int {
	// Rank + Average + Label + Scored with borders and padding
	available := terminalWidth(cfg) - 50
	if available < 15 {
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}

// getPlotBarWidth returns how many cells the longest plot bar may use.
func getPlotBarWidth(cfg *contract.Config, nameWidth int) int {
	available := terminalWidth(cfg) - nameWidth - 12 // name, padding and value
	if available < 10 {
		return 10
	}
	if available > 60 {
		return 60
	}
	return available
}
