//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestProsoulWithMySQL tests the model and history stores with a MySQL backend.
func TestProsoulWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "prosoul",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/prosoul", host, port.Port())
	exerciseStores(t, "mysql", connStr)
}

// TestProsoulWithPostgres tests the model and history stores with a PostgreSQL backend.
func TestProsoulWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseStores(t, "postgresql", connStr)
}

// exerciseStores runs the store commands against one database shared by
// both stores.
func exerciseStores(t *testing.T, backend, connStr string) {
	env := []string{
		"PROSOUL_MODEL_BACKEND=" + backend,
		"PROSOUL_MODEL_DB_CONNECT=" + connStr,
		"PROSOUL_HISTORY_BACKEND=" + backend,
		"PROSOUL_HISTORY_DB_CONNECT=" + connStr,
	}

	_, err := runProsoul(t, env, "models", "migrate")
	require.NoError(t, err)
	_, err = runProsoul(t, env, "history", "migrate")
	require.NoError(t, err)

	_, err = runProsoul(t, env, "models", "import", fixturePath(t, "health.yaml"))
	require.NoError(t, err)

	// Importing again replaces the stored models
	_, err = runProsoul(t, env, "models", "import", fixturePath(t, "health.yaml"))
	require.NoError(t, err)

	out, err := runProsoul(t, env, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "health")
	assert.Contains(t, out, "licensing")

	out, err = runProsoul(t, env, "models", "show", "health", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Growth"`)

	_, err = runProsoul(t, env, "models", "delete", "licensing")
	require.NoError(t, err)

	out, err = runProsoul(t, env, "models", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)

	_, err = runProsoul(t, env, "history", "clear")
	require.NoError(t, err)

	out, err = runProsoul(t, env, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)

	// Roll both stores back to an empty schema and forward again
	_, err = runProsoul(t, env, "models", "migrate", "--target-version", "0")
	require.NoError(t, err)
	_, err = runProsoul(t, env, "models", "migrate")
	require.NoError(t, err)
	_, err = runProsoul(t, env, "history", "migrate", "--target-version", "0")
	require.NoError(t, err)
}
