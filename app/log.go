package app

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"minikern/hal"
)

// lineSink adapts the HAL line logger to a zap WriteSyncer.
type lineSink struct {
	out hal.Logger
}

func (s lineSink) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte{'\n'}) {
		s.out.WriteLineBytes(line)
	}
	return len(p), nil
}

func (lineSink) Sync() error { return nil }

// newLogger writes every entry at level or above to the HAL logger. When a
// console is attached, warnings and errors are also kept on screen.
func newLogger(out hal.Logger, level zapcore.Level, con *console) *zap.Logger {
	if out == nil {
		return zap.NewNop()
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), lineSink{out: out}, level),
	}
	if con != nil {
		short := zapcore.EncoderConfig{
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: " ",
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(short), con, max(level, zapcore.WarnLevel)))
	}
	return zap.New(zapcore.NewTee(cores...))
}
