// Package logging holds the process-wide zap logger.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is a no-op until Initialize runs, so packages may log at any time.
	Logger = nopLogger()
	// JSONOutput records whether Initialize selected the JSON encoder.
	JSONOutput bool
)

// Initialize replaces Logger. Console output is terse and meant for people;
// jsonOutput switches to zap's production encoder. verbose enables debug
// messages in both modes.
func Initialize(verbose, jsonOutput bool) error {
	return initialize(os.Stderr, verbose, jsonOutput)
}

func initialize(w io.Writer, verbose, jsonOutput bool) error {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	JSONOutput = jsonOutput

	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !isTerminal(w) {
			cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	Logger = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level)).Sugar()
	return nil
}

// Cleanup flushes buffered entries.
func Cleanup() {
	_ = Logger.Sync()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }
