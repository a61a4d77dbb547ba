package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

// documentNamespace seeds the name-based IDs of score documents.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/huangsam/prosoul/scores"))

// DocumentMeta is attached to every document of one publish call.
type DocumentMeta struct {
	Type      schema.ScoreType
	Window    schema.Window
	CreatedAt time.Time
	RunID     string
}

// ToDocuments turns flattened records into score documents. IDs are derived
// from the record key and window, so republishing a run overwrites in place.
func ToDocuments(records []schema.ScoreRecord, meta DocumentMeta) []contract.Document {
	start := contract.FormatDate(meta.Window.Start)
	end := contract.FormatDate(meta.Window.End)
	created := meta.CreatedAt.UTC().Format(time.RFC3339)

	docs := make([]contract.Document, 0, len(records))
	for _, r := range records {
		var score, raw any
		if r.Score != nil {
			score = *r.Score
		}
		if r.RawValue != nil {
			raw = *r.RawValue
		}
		key := strings.Join([]string{string(meta.Type), start, end, r.Goal, r.Attribute, r.Metric, r.Project}, "\x1f")
		docs = append(docs, contract.Document{
			ID: uuid.NewSHA1(documentNamespace, []byte(key)).String(),
			Source: map[string]any{
				"goal":              r.Goal,
				"attribute":         r.Attribute,
				"metric":            r.Metric,
				"calculation_type":  string(r.CalculationType),
				"project":           r.Project,
				"score":             score,
				"score_" + r.Metric: score,
				"raw_value":         raw,
				"type":              string(meta.Type),
				"start_date":        start,
				"end_date":          end,
				"creation_date":     created,
				"run_id":            meta.RunID,
			},
		})
	}
	return docs
}
