// Package algo holds the pure scoring and reshaping functions used by the assessor.
package algo

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseThresholds parses a comma-separated list of numbers such as "10, 20,50,100".
// An empty or blank string yields no thresholds.
func ParseThresholds(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var thresholds []float64
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q: %w", part, err)
		}
		thresholds = append(thresholds, v)
	}
	return thresholds, nil
}

// Classify maps a raw value to a score in [0, len(thresholds)].
//
// In ascending mode the score is the number of thresholds the value is strictly
// greater than. In reverse mode lower values are better, so the score is the
// number of thresholds the value is strictly less than. The second return value
// is false when there are no thresholds, meaning the metric produces no score.
func Classify(value float64, thresholds []float64, reverse bool) (int, bool) {
	if len(thresholds) == 0 {
		return 0, false
	}
	score := 0
	for _, t := range thresholds {
		if reverse {
			if value < t {
				score++
			}
		} else if value > t {
			score++
		}
	}
	return score, true
}
