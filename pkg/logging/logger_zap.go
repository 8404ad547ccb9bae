package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.Logger to the Logger interface
type ZapLogger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

// NewZapLogger builds a production zap logger (JSON to stderr) at the given level
func NewZapLogger(level Level) (*ZapLogger, error) {
	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{base: base, level: atom}, nil
}

// WrapZap adapts an existing zap logger. The level is read from the core.
func WrapZap(base *zap.Logger) *ZapLogger {
	atom := zap.NewAtomicLevel()
	for _, l := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		if base.Core().Enabled(l) {
			atom.SetLevel(l)
			break
		}
	}
	return &ZapLogger{base: base, level: atom}
}

func (z *ZapLogger) Debug(msg string, fields ...Field) { z.base.Debug(msg, toZapFields(fields)...) }
func (z *ZapLogger) Info(msg string, fields ...Field)  { z.base.Info(msg, toZapFields(fields)...) }
func (z *ZapLogger) Warn(msg string, fields ...Field)  { z.base.Warn(msg, toZapFields(fields)...) }
func (z *ZapLogger) Error(msg string, fields ...Field) { z.base.Error(msg, toZapFields(fields)...) }

func (z *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{base: z.base.With(toZapFields(fields)...), level: z.level}
}

func (z *ZapLogger) SetLevel(level Level) {
	z.level.SetLevel(toZapLevel(level))
}

func (z *ZapLogger) GetLevel() Level {
	switch z.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Sync flushes buffered entries
func (z *ZapLogger) Sync() error {
	return z.base.Sync()
}

func toZapLevel(l Level) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
