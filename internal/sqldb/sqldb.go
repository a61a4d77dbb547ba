// Package sqldb opens and migrates the SQL databases behind the model and history stores.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/prosoul/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// DriverName returns the database/sql driver registered for backend.
func DriverName(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// Open connects to backend and verifies the connection. For SQLite an empty
// connStr means defaultPath.
func Open(backend schema.DatabaseBackend, connStr, defaultPath string) (*sql.DB, error) {
	driverName, err := DriverName(backend)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = defaultPath
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		dsn, err := mysql.ParseDSN(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MySQL connection string: %w", err)
		}
		// Migrations hold several statements and time columns scan into time.Time.
		dsn.MultiStatements = true
		dsn.ParseTime = true
		db, err = sql.Open(driverName, dsn.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=... user=... password=...", err)
		}
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// QuoteTable quotes a table name for backend.
func QuoteTable(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// Rebind rewrites ? placeholders to $n for PostgreSQL. Queries must not
// contain literal question marks.
func Rebind(query string, backend schema.DatabaseBackend) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatTime converts a time.Time to the appropriate format for the backend.
func FormatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t.UTC()
	}
}

// timeLayouts are the text forms time columns come back in.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeValue scans a time column stored natively or as text.
type TimeValue struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (tv *TimeValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		tv.Time, tv.Valid = time.Time{}, false
		return nil
	case time.Time:
		tv.Time, tv.Valid = v.UTC(), true
		return nil
	case []byte:
		return tv.parse(string(v))
	case string:
		return tv.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into a time", src)
	}
}

func (tv *TimeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			tv.Time, tv.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

// Ptr returns the time, or nil when the column was NULL.
func (tv TimeValue) Ptr() *time.Time {
	if !tv.Valid {
		return nil
	}
	t := tv.Time
	return &t
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertID runs an INSERT and returns the generated id column. query uses ?
// placeholders and must not end with a RETURNING clause.
func InsertID(ctx context.Context, ex Execer, backend schema.DatabaseBackend, query string, args ...any) (int64, error) {
	if backend == schema.PostgreSQLBackend {
		var id int64
		err := ex.QueryRowContext(ctx, Rebind(query, backend)+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CountRows returns the row count of every table, keyed by table name.
func CountRows(ctx context.Context, db *sql.DB, backend schema.DatabaseBackend, tables ...string) (map[string]int64, error) {
	sizes := make(map[string]int64, len(tables))
	for _, table := range tables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteTable(table, backend))
		if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return sizes, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		sizes[table] = count
	}
	return sizes, nil
}
