//go:build basic

// Package integration contains integration tests for prosoul.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Database tests need Docker: go test -tags database ./integration
package integration

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProsoulVersion(t *testing.T) {
	out, err := runProsoul(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "prosoul CLI")
}

func TestProsoulModelsFromFile(t *testing.T) {
	env := []string{"PROSOUL_MODELS_FILE=" + fixturePath(t, "health.yaml")}

	out, err := runProsoul(t, env, "models", "list", "--output", "json")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"health", "licensing"}, names)

	out, err = runProsoul(t, env, "models", "show", "health", "--output", "json")
	require.NoError(t, err)
	var outline struct {
		Name  string   `json:"name"`
		Roots []string `json:"roots"`
		Goals []struct {
			Name     string   `json:"name"`
			Subgoals []string `json:"subgoals"`
		} `json:"goals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &outline))
	assert.Equal(t, "health", outline.Name)
	assert.Equal(t, []string{"Community"}, outline.Roots)
	require.Len(t, outline.Goals, 2)
	assert.Equal(t, []string{"Growth"}, outline.Goals[0].Subgoals)
}

func TestProsoulSQLiteModelStore(t *testing.T) {
	dir := t.TempDir()
	env := []string{
		"PROSOUL_MODEL_BACKEND=sqlite",
		"PROSOUL_MODEL_DB_CONNECT=" + filepath.Join(dir, "models.db"),
	}

	_, err := runProsoul(t, env, "models", "import", fixturePath(t, "health.yaml"))
	require.NoError(t, err)

	out, err := runProsoul(t, env, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "health")
	assert.Contains(t, out, "licensing")

	_, err = runProsoul(t, env, "models", "delete", "licensing")
	require.NoError(t, err)

	out, err = runProsoul(t, env, "models", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "licensing")

	_, err = runProsoul(t, env, "models", "show", "licensing")
	assert.Error(t, err)

	out, err = runProsoul(t, env, "models", "status")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "sqlite"), "status should name the backend: %s", out)
}

func TestProsoulAssessRequiresModel(t *testing.T) {
	_, err := runProsoul(t, []string{"PROSOUL_MODELS_FILE=" + fixturePath(t, "health.yaml")}, "assess")
	assert.Error(t, err)
}
