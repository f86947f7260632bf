package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		verbose    bool
		jsonOutput bool
		wantDebug  bool
	}{
		{name: "console", verbose: false, jsonOutput: false},
		{name: "console verbose", verbose: true, jsonOutput: false, wantDebug: true},
		{name: "json", verbose: false, jsonOutput: true},
		{name: "json verbose", verbose: true, jsonOutput: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, initialize(&buf, tt.verbose, tt.jsonOutput))
			t.Cleanup(func() { Logger = nopLogger() })

			assert.Equal(t, tt.jsonOutput, JSONOutput)
			Logger.Debugw("debug line", "k", 1)
			Logger.Infow("info line", "k", 2)
			Cleanup()

			out := buf.String()
			assert.Contains(t, out, "info line")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			if tt.jsonOutput {
				first := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0]
				var entry map[string]any
				require.NoError(t, json.Unmarshal(first, &entry))
				assert.Contains(t, entry, "msg")
			}
		})
	}
}

func TestLoggerUsableBeforeInitialize(t *testing.T) {
	require.NotNil(t, Logger)
	Logger.Infow("dropped")
}
