package sqldb

import (
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	query := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, query, Rebind(query, schema.SQLiteBackend))
	assert.Equal(t, query, Rebind(query, schema.MySQLBackend))
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", Rebind(query, schema.PostgreSQLBackend))
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, "`runs`", QuoteTable("runs", schema.MySQLBackend))
	assert.Equal(t, `"runs"`, QuoteTable("runs", schema.PostgreSQLBackend))
	assert.Equal(t, `"runs"`, QuoteTable("runs", schema.SQLiteBackend))
}

func TestTimeValueScan(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	tests := []struct {
		name  string
		src   any
		valid bool
		want  time.Time
	}{
		{name: "nil", src: nil},
		{name: "native", src: want, valid: true, want: want},
		{name: "rfc3339 text", src: want.Format(time.RFC3339Nano), valid: true, want: want},
		{name: "mysql bytes", src: []byte("2024-03-01 12:30:00"), valid: true, want: want.Truncate(time.Second)},
		{name: "date only", src: "2024-03-01", valid: true, want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tv TimeValue
			require.NoError(t, tv.Scan(tt.src))
			assert.Equal(t, tt.valid, tv.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(tv.Time), "got %s", tv.Time)
				require.NotNil(t, tv.Ptr())
			} else {
				assert.Nil(t, tv.Ptr())
			}
		})
	}

	var tv TimeValue
	assert.Error(t, tv.Scan("yesterday"))
	assert.Error(t, tv.Scan(42))
}

func TestDriverName(t *testing.T) {
	name, err := DriverName(schema.PostgreSQLBackend)
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)

	_, err = DriverName(schema.NoneBackend)
	assert.Error(t, err)
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := Open(schema.SQLiteBackend, filepath.Join(t.TempDir(), "test.db"), "")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	set := Migrations{
		Table: "test_migrations",
		FS: fstest.MapFS{
			"sqlite/1_init.up.sql":   {Data: []byte(`CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);`)},
			"sqlite/1_init.down.sql": {Data: []byte(`DROP TABLE items;`)},
		},
	}

	res, err := Migrate(db, schema.SQLiteBackend, set, -1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(1), res.To)

	res, err = Migrate(db, schema.SQLiteBackend, set, -1)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	id, err := InsertID(t.Context(), db, schema.SQLiteBackend, `INSERT INTO items (name) VALUES (?)`, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	sizes, err := CountRows(t.Context(), db, schema.SQLiteBackend, "items")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes["items"])

	res, err = Migrate(db, schema.SQLiteBackend, set, 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(0), res.To)
}

func TestMigrateUnsupportedBackend(t *testing.T) {
	_, err := Migrate(nil, schema.NoneBackend, Migrations{}, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}
