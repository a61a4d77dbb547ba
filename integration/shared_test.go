//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	// sharedProsoulPath holds the path to a prosoul binary built once for all tests.
	sharedProsoulPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getProsoulBinary returns the path to the prosoul binary, building it once if needed.
func getProsoulBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "prosoul-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		prosoulPath := filepath.Join(tempDir, "prosoul")
		buildCmd := exec.Command("go", "build", "-o", prosoulPath, ".")
		buildCmd.Dir = ".." // Build from project root
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build prosoul: %v\n%s", err, out))
		}

		sharedProsoulPath = prosoulPath
	})

	return sharedProsoulPath
}

// runProsoul runs the binary with env added to the process environment and
// returns stdout.
func runProsoul(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getProsoulBinary(), args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
		return stdout.String(), err
	}
	return stdout.String(), nil
}

// fixturePath returns the absolute path of a file under testdata.
func fixturePath(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to resolve fixture %s: %v", name, err)
	}
	return path
}
