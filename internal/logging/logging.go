// Package logging builds Tyr's structured logger: stderr always, an
// optional debug file only under --verbose, and stdout never touched —
// stdout is reserved entirely for the HookResponse wire shape.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger. When verbose is false, only warnings and
// above reach stderr and no debug file is opened. When verbose is true,
// everything is also written to debugFilePath (if non-empty).
func New(verbose bool, debugFilePath string) (*zap.SugaredLogger, func(), error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	stderrLevel := zap.WarnLevel
	if verbose {
		stderrLevel = zap.DebugLevel
	}
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), stderrLevel),
	}

	cleanup := func() {}
	if verbose && debugFilePath != "" {
		f, err := os.OpenFile(debugFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, cleanup, err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), zap.DebugLevel))
		cleanup = func() { f.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger.Sugar(), func() { cleanup(); logger.Sync() }, nil
}
