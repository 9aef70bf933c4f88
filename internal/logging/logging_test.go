package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"err":     slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	lg, closer, err := New(Options{Level: "warn", JSON: true, Writer: &buf})
	require.NoError(t, err)
	defer closer.Close()

	lg.Info("hidden")
	lg.Warn("shown", "record_id", "r1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "r1", line["record_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestFileAppends(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "app.log")
	for i := 0; i < 2; i++ {
		lg, closer, err := New(Options{File: p})
		require.NoError(t, err)
		lg.Info("line")
		require.NoError(t, closer.Close())
	}
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(b, []byte("msg=line")))

	_, err = OpenFile("")
	assert.Error(t, err)
}
