package contract

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/prosoul/schema"
	"github.com/robfig/cron/v3"
)

// Default values for configuration.
const (
	DefaultFromDate   = "1970-01-01"
	DefaultToDate     = "2100-01-01"
	DefaultElasticURL = "http://localhost:9200"
	DefaultIndex      = "metrics"
	DefaultPrecision  = 2
	DefaultListen     = ":8080"
	DefaultCronSpec   = "0 0 * * *"
)

// DefaultWorkers is the default number of concurrent metric queries per attribute.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// cronParser accepts standard five-field expressions with optional seconds and descriptors.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds the runtime configuration for an assessment.
// This struct remains the "final, validated" config.
type Config struct {
	ElasticURL string
	Index      string
	Model      string
	Backend    schema.MetricsBackend
	StartTime  time.Time
	EndTime    time.Time
	Attribute  string // restrict assessment to one attribute name
	Workers    int
	Publish    bool
	Insecure   bool          // skip TLS verification against the store
	Timeout    time.Duration // 0 means no overall deadline

	Output     schema.OutputMode
	OutputFile string
	CSVDir     string
	Report     schema.ReportKind
	Plot       bool
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	Debug      bool

	ModelBackend   schema.DatabaseBackend
	ModelDBConnect string // Please use env var as this is plaintext
	ModelsFile     string // read models from a JSON/YAML file instead of a database

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Listen   string
	CronSpec string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	ElasticURL       string `mapstructure:"elastic-url"`
	Index            string `mapstructure:"index"`
	Model            string `mapstructure:"model"`
	Backend          string `mapstructure:"backend-metrics-data"`
	FromDate         string `mapstructure:"from-date"`
	ToDate           string `mapstructure:"to-date"`
	Attribute        string `mapstructure:"attribute"`
	Workers          int    `mapstructure:"workers"`
	Insecure         bool   `mapstructure:"insecure"`
	Timeout          string `mapstructure:"timeout"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Precision        int    `mapstructure:"precision"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	Debug            bool   `mapstructure:"debug"`
	ModelBackend     string `mapstructure:"model-backend"`
	ModelDBConnect   string `mapstructure:"model-db-connect"`
	ModelsFile       string `mapstructure:"models-file"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from assessCmd.Flags() ---
	NoPublish bool   `mapstructure:"no-publish"`
	CSVDir    string `mapstructure:"csv-dir"`
	Report    string `mapstructure:"report"`
	Plot      bool   `mapstructure:"plot"`

	// --- Fields from serveCmd.Flags() ---
	Listen string `mapstructure:"listen"`

	// --- Fields from scheduleCmd.Flags() ---
	Cron string `mapstructure:"cron"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// CloneWithTimeWindow creates a copy of the Config and sets the new StartTime and EndTime.
func (c *Config) CloneWithTimeWindow(start time.Time, end time.Time) *Config {
	clone := c.Clone()
	clone.StartTime = start
	clone.EndTime = end
	return clone
}

// Window returns the configured date range.
func (c *Config) Window() schema.Window {
	return schema.Window{Start: c.StartTime, End: c.EndTime}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processStoreTarget(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return processSchedule(cfg, input)
}

// ValidateMetricsBackend checks a backend name before any query is issued.
func ValidateMetricsBackend(name string) (schema.MetricsBackend, error) {
	backend := schema.MetricsBackend(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := schema.ValidMetricsBackends[backend]; !ok {
		return "", fmt.Errorf("%w: %q. must be grimoirelab, ossmeter, scava-metrics", ErrUnsupportedBackend, name)
	}
	return backend, nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseDatabaseBackend normalizes a backend name; empty means the given fallback.
func ParseDatabaseBackend(name string, fallback schema.DatabaseBackend) (schema.DatabaseBackend, error) {
	if strings.TrimSpace(name) == "" {
		return fallback, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid database backend '%s'. must be sqlite, mysql, postgresql, none", name)
	}
	return backend, nil
}

// validateSimpleInputs processes and validates all non-store fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Model = strings.TrimSpace(input.Model)
	cfg.Attribute = strings.TrimSpace(input.Attribute)
	cfg.OutputFile = input.OutputFile
	cfg.CSVDir = input.CSVDir
	cfg.Plot = input.Plot
	cfg.Publish = !input.NoPublish
	cfg.Insecure = input.Insecure
	cfg.Width = input.Width
	cfg.Debug = input.Debug
	cfg.ModelsFile = strings.TrimSpace(input.ModelsFile)

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 3. Report Validation ---
	cfg.Report = schema.ReportKind(strings.ToLower(input.Report))
	if cfg.Report == "" {
		cfg.Report = schema.BigNumberReport
	}
	if _, ok := schema.ValidReportKinds[cfg.Report]; !ok {
		return fmt.Errorf("invalid report '%s'. must be big_number, stats", input.Report)
	}

	// --- 4. Timeout Validation ---
	if strings.TrimSpace(input.Timeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(input.Timeout))
		if err != nil {
			return fmt.Errorf("invalid --timeout value: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("timeout cannot be negative (received %s)", d)
		}
		cfg.Timeout = d
	}

	return nil
}

// processStoreTarget validates the metrics store URL, index and backend.
func processStoreTarget(cfg *Config, input *ConfigRawInput) error {
	raw := strings.TrimRight(strings.TrimSpace(input.ElasticURL), "/")
	if raw == "" {
		return fmt.Errorf("elastic-url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid elastic-url '%s'. must be an http(s) URL", input.ElasticURL)
	}
	cfg.ElasticURL = raw

	cfg.Index = strings.TrimSpace(input.Index)
	if cfg.Index == "" {
		return fmt.Errorf("index is required")
	}
	if strings.ContainsAny(cfg.Index, " ,*?\"<>|/\\") {
		return fmt.Errorf("invalid index name '%s'", cfg.Index)
	}

	backend, err := ValidateMetricsBackend(input.Backend)
	if err != nil {
		return err
	}
	cfg.Backend = backend
	return nil
}

// processTimeRange handles the date parsing and time range validation.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	from := input.FromDate
	if strings.TrimSpace(from) == "" {
		from = DefaultFromDate
	}
	to := input.ToDate
	if strings.TrimSpace(to) == "" {
		to = DefaultToDate
	}

	start, err := ParseDate(from, now)
	if err != nil {
		return fmt.Errorf("invalid --from-date: %w", err)
	}
	end, err := ParseDate(to, now)
	if err != nil {
		return fmt.Errorf("invalid --to-date: %w", err)
	}
	if start.After(end) {
		return fmt.Errorf("from date (%s) cannot be after to date (%s)", FormatDate(start), FormatDate(end))
	}

	cfg.StartTime = start
	cfg.EndTime = end
	return nil
}

// validateBackendConfigs validates model and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Model Backend Validation ---
	backend, err := ParseDatabaseBackend(input.ModelBackend, schema.SQLiteBackend)
	if err != nil {
		return err
	}
	cfg.ModelBackend = backend
	cfg.ModelDBConnect = input.ModelDBConnect
	if cfg.ModelsFile == "" {
		if cfg.ModelBackend == schema.NoneBackend {
			return fmt.Errorf("model-backend none requires --models-file")
		}
		if err := ValidateDatabaseConnectionString(cfg.ModelBackend, cfg.ModelDBConnect); err != nil {
			return err
		}
	}

	// --- History Backend Validation ---
	backend, err = ParseDatabaseBackend(input.HistoryBackend, schema.NoneBackend)
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Validate that models and history use different SQLite files
	if cfg.ModelsFile == "" && cfg.ModelBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		modelPath := cfg.ModelDBConnect
		if modelPath == "" {
			modelPath = GetModelDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if modelPath == historyPath {
			return fmt.Errorf("model and history storage must use different SQLite database files. Both resolve to %q", modelPath)
		}
	}

	return nil
}

// processSchedule validates the listen address and cron expression.
func processSchedule(cfg *Config, input *ConfigRawInput) error {
	cfg.Listen = strings.TrimSpace(input.Listen)
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	cfg.CronSpec = strings.TrimSpace(input.Cron)
	if cfg.CronSpec == "" {
		cfg.CronSpec = DefaultCronSpec
	}
	if _, err := cronParser.Parse(cfg.CronSpec); err != nil {
		return fmt.Errorf("invalid --cron expression '%s': %w", cfg.CronSpec, err)
	}
	return nil
}

// ParseCron parses a cron expression with the same rules used during validation.
func ParseCron(spec string) (cron.Schedule, error) {
	return cronParser.Parse(spec)
}
