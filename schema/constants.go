package schema

// Custom string types for type safety.
type (
	// MetricsBackend identifies the layout of the metrics index being assessed.
	MetricsBackend string

	// CalculationType is the aggregation applied to a metric's values per project.
	CalculationType string

	// ScoreType marks whether a published score covers one quarter or the whole range.
	ScoreType string

	// OutputMode represents the format of the output.
	OutputMode string

	// ReportKind selects the summary printed after an assessment.
	ReportKind string

	// DatabaseBackend represents the database backend for model and history storage.
	DatabaseBackend string
)

// All metrics backends supported.
const (
	GrimoireLabBackend  MetricsBackend = "grimoirelab" // default
	OSSMeterBackend     MetricsBackend = "ossmeter"
	ScavaMetricsBackend MetricsBackend = "scava-metrics"
)

// All calculation types supported.
const (
	CalcMax    CalculationType = "max" // default
	CalcMin    CalculationType = "min"
	CalcAvg    CalculationType = "avg"
	CalcMedian CalculationType = "median"
	CalcSum    CalculationType = "sum"
	CalcLast   CalculationType = "last"
)

// All score types published.
const (
	QuarterScore ScoreType = "quarter"
	AllScore     ScoreType = "all"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All report kinds supported.
const (
	BigNumberReport ReportKind = "big_number" // default
	StatsReport     ReportKind = "stats"
)

// All storage backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ScoreLevels are the labels for scores 0..4 on a four-threshold metric.
var ScoreLevels = []string{"Very Poor", "Poor", "Fair", "Good", "Very Good"}

// ValidMetricsBackends lists all valid metrics backends.
var ValidMetricsBackends = map[MetricsBackend]struct{}{
	GrimoireLabBackend:  {},
	OSSMeterBackend:     {},
	ScavaMetricsBackend: {},
}

// ValidCalculationTypes lists all valid calculation types.
var ValidCalculationTypes = map[CalculationType]struct{}{
	CalcMax:    {},
	CalcMin:    {},
	CalcAvg:    {},
	CalcMedian: {},
	CalcSum:    {},
	CalcLast:   {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidReportKinds lists all valid report kinds.
var ValidReportKinds = map[ReportKind]struct{}{
	BigNumberReport: {},
	StatsReport:     {},
}

// ValidDatabaseBackends lists all valid storage backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// NormalizeCalculationType maps an empty calculation type to the default.
func NormalizeCalculationType(ct CalculationType) CalculationType {
	if ct == "" {
		return CalcMax
	}
	return ct
}
