package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantErr   bool
		logDebug  bool
		checkJSON bool
	}{
		{name: "defaults", level: "", format: ""},
		{name: "debug console", level: "debug", format: "console", logDebug: true},
		{name: "json", level: "info", format: "json", checkJSON: true},
		{name: "upper case", level: "WARN", format: "JSON", checkJSON: true},
		{name: "bad level", level: "loud", format: "console", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New(&buf, tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			log.Debug("debug line")
			log.Warn("warn line", zap.String("resource", "tenants"))

			require.Equal(t, tt.logDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			require.Contains(t, buf.String(), "warn line")
			if tt.checkJSON {
				var entry map[string]any
				require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
				require.Equal(t, "tenants", entry["resource"])
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, lvl)

	lvl, err = ParseLevel("Error")
	require.NoError(t, err)
	require.Equal(t, zapcore.ErrorLevel, lvl)
}
