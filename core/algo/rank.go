package algo

import (
	"sort"

	"github.com/huangsam/prosoul/schema"
)

// RankSummaries sorts project summaries by average score in descending order
// and returns the top 'limit' entries. Ties are broken by project name.
func RankSummaries(summaries []schema.ProjectSummary, limit int) []schema.ProjectSummary {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Average != summaries[j].Average {
			return summaries[i].Average > summaries[j].Average
		}
		return summaries[i].Project < summaries[j].Project
	})
	if limit >= 0 && len(summaries) > limit {
		return summaries[:limit]
	}
	return summaries
}
