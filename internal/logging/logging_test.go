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
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("region table rebuilt", "regions", 85)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "one JSON line: %s", buf.String())
	assert.Equal(t, "region table rebuilt", line["msg"])
	assert.InDelta(t, 85, line["regions"], 0)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{}, &buf)
	require.NoError(t, err)

	logger.Debug("skipped")
	logger.Info("loaded", "file", "Adygeya.geojson")
	assert.Contains(t, buf.String(), "msg=loaded file=Adygeya.geojson")
	assert.NotContains(t, buf.String(), "skipped")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "regionmap.log")
	var console bytes.Buffer

	logger, closer, err := New(Config{File: path, MaxSizeMB: 1, MaxBackups: 1}, &console)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Empty(t, console.String())
}

func TestNew_Invalid(t *testing.T) {
	_, _, err := New(Config{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log format")

	_, _, err = New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log level")
}
