package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFormatter(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{name: "precision 2", precision: 2, value: 3.14159, expected: "3.14"},
		{name: "precision 1", precision: 1, value: 2.25, expected: "2.2"},
		{name: "precision 4", precision: 4, value: 3.14159, expected: "3.1416"},
		{name: "whole number", precision: 2, value: 3, expected: "3.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, createFormatter(tt.precision)(tt.value))
		})
	}
}

func TestFormatNullableCells(t *testing.T) {
	assert.Equal(t, "", formatScore(nil))
	assert.Equal(t, "0", formatScore(schema.IntPtr(0)))
	assert.Equal(t, "4", formatScore(schema.IntPtr(4)))

	assert.Equal(t, "", formatRaw(nil))
	assert.Equal(t, "75", formatRaw(schema.FloatPtr(75)))
	assert.Equal(t, "0.125", formatRaw(schema.FloatPtr(0.125)))
	assert.Equal(t, "-3.5", formatRaw(schema.FloatPtr(-3.5)))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []string{"a", "b"}))
	assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]\n", buf.String())
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{
			name:     "rows follow header",
			header:   []string{"project", "average"},
			rows:     [][]string{{"alpha", "3.50"}, {"beta", "1.00"}},
			expected: "project,average\nalpha,3.50\nbeta,1.00\n",
		},
		{
			name:     "header only",
			header:   []string{"project"},
			expected: "project\n",
		},
		{
			name:     "quoted value",
			header:   []string{"project"},
			rows:     [][]string{{"org, inc"}},
			expected: "project\n\"org, inc\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, tt.header, func(w *csv.Writer) error {
				for _, row := range tt.rows {
					if err := w.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteCSVWithHeaderError(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"col"}, func(*csv.Writer) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWriteWithFile(t *testing.T) {
	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "content")
			return err
		}, "Wrote text")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("propagates writer error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(path, func(io.Writer) error { return assert.AnError }, "Wrote text")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/dir/out.txt", func(io.Writer) error { return nil }, "Wrote text")
		require.Error(t, err)
	})
}
