package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"alpha", "alpha"},
		{"GrimoireLab", "GrimoireLab"},
		{"org/repo", "org_repo"},
		{"  spaced name ", "spaced_name"},
		{"v1.2-rc_3", "v1.2-rc_3"},
		{"..", "__"},
		{".", "_"},
		{"", "_"},
		{"a:b*c?", "a_b_c_"},
		{"Müller", "Müller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFileName(tt.name))
		})
	}
}

func TestScoreLabel(t *testing.T) {
	tests := []struct {
		name       string
		score      *int
		thresholds int
		want       string
	}{
		{"no score", nil, 4, "-"},
		{"lowest", IntPtr(0), 4, "Very Poor"},
		{"middle", IntPtr(2), 4, "Fair"},
		{"highest", IntPtr(4), 4, "Very Good"},
		{"other scale", IntPtr(1), 2, "1/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreLabel(tt.score, tt.thresholds))
		})
	}
}

func TestNormalizeCalculationType(t *testing.T) {
	assert.Equal(t, CalcMax, NormalizeCalculationType(""))
	assert.Equal(t, CalcMedian, NormalizeCalculationType(CalcMedian))
}

func TestModelAssessmentEmptyAndEntry(t *testing.T) {
	var nilAssessment *ModelAssessment
	assert.True(t, nilAssessment.Empty())

	ma := &ModelAssessment{
		Model: "m",
		Goals: []GoalAssessment{{
			Goal: "Community",
			Attributes: []AttributeAssessment{{
				Attribute: "Activity",
				Metrics: []MetricAssessment{{
					Metric:          "commits",
					CalculationType: CalcMax,
					Projects:        map[string]ScoreEntry{},
				}},
			}},
		}},
	}
	assert.True(t, ma.Empty())

	ma.Goals[0].Attributes[0].Metrics[0].Projects["alpha"] = ScoreEntry{Score: IntPtr(2), RawValue: FloatPtr(75)}
	assert.False(t, ma.Empty())

	e, ok := ma.Entry("Community", "Activity", "commits", "alpha")
	assert.True(t, ok)
	assert.Equal(t, 2, *e.Score)
	assert.False(t, e.IsPlaceholder())

	_, ok = ma.Entry("Community", "Activity", "commits", "beta")
	assert.False(t, ok)
	_, ok = ma.Entry("Other", "Activity", "commits", "alpha")
	assert.False(t, ok)
}

func TestProjectAssessmentRecords(t *testing.T) {
	pa := ProjectAssessment{
		"beta": {
			{Goal: "G", Attribute: "A", Metric: "m1", CalculationType: CalcMax},
		},
		"alpha": {
			{Goal: "G", Attribute: "A", Metric: "m1", CalculationType: CalcMax, Score: IntPtr(1), RawValue: FloatPtr(3)},
			{Goal: "G", Attribute: "A", Metric: "m2", CalculationType: CalcSum, Score: IntPtr(2), RawValue: FloatPtr(9)},
		},
	}

	assert.Equal(t, []string{"alpha", "beta"}, pa.Projects())

	records := pa.Records()
	assert.Len(t, records, 3)
	assert.Equal(t, "alpha", records[0].Project)
	assert.Equal(t, "m1", records[0].Metric)
	assert.Equal(t, "m2", records[1].Metric)
	assert.Equal(t, "beta", records[2].Project)
	assert.Nil(t, records[2].Score)
}

func TestQualityModelOutline(t *testing.T) {
	activity := &Attribute{Name: "Activity"}
	root := &Goal{Name: "Community", Attributes: []*Attribute{activity}}
	child := &Goal{Name: "Growth", Attributes: []*Attribute{activity}}
	leaf := &Goal{Name: "Licensing"}
	root.Subgoals = []*Goal{child, nil}
	child.Subgoals = []*Goal{root, leaf}

	out := (&QualityModel{Name: "CHAOSS", Goals: []*Goal{root, leaf, nil}}).Outline()

	assert.Equal(t, "CHAOSS", out.Name)
	assert.Equal(t, []string{"Community", "Licensing"}, out.Roots)
	assert.Equal(t, []GoalOutline{
		{Name: "Community", Attributes: []*Attribute{activity}, Subgoals: []string{"Growth"}},
		{Name: "Growth", Attributes: []*Attribute{activity}, Subgoals: []string{"Community", "Licensing"}},
		{Name: "Licensing"},
	}, out.Goals)
}

func TestQualityModelOutlineEmpty(t *testing.T) {
	out := (&QualityModel{Name: "empty"}).Outline()
	assert.Empty(t, out.Roots)
	assert.NotNil(t, out.Goals)
}
