// Package rlog builds the *zap.Logger used throughout the supervisor: a
// no-op logger by default, or a JSON file sink when a log file is
// configured with --log-file.
package rlog

import (
	"os"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a no-op logger: the default when no log file is configured,
// matching the corpus's convention of defaulting to zap.NewNop() rather
// than writing to stderr by default.
func New() *zap.Logger {
	return zap.NewNop()
}

// NewFile returns a logger that writes JSON-encoded entries to path,
// truncating any existing file. Entries are written to the file unbuffered;
// the returned func closes the file and must be called before the process
// exits.
func NewFile(path string) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open log file %q", path)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(f),
		zap.InfoLevel,
	)
	logger := zap.New(core)
	return logger, f.Close, nil
}
