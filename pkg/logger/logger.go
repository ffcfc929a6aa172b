// Package logger provides the structured logger shared by the commands and the
// browser core. It wraps zap behind a small context-aware API.
package logger

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Config controls logger construction.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // text or json
	Component string    // added to every entry as "component"
	Version   string    // added to every entry as "version"
	Output    io.Writer // defaults to os.Stderr
}

// Logger writes structured entries. The zero value is not usable; use New or NewNop.
type Logger struct {
	z *zap.Logger
}

type ctxKey struct{}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), ParseLevel(cfg.Level))
	z := zap.New(core)
	if cfg.Component != "" {
		z = z.With(zap.String("component", cfg.Component))
	}
	if cfg.Version != "" {
		z = z.With(zap.String("version", cfg.Version))
	}
	return &Logger{z: z}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// ParseLevel maps a level name to a zap level. Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithFields returns a context carrying fields that every entry logged with it
// will include.
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := Fields{}
	if prev, ok := ctx.Value(ctxKey{}).(Fields); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxKey{}, merged)
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...Fields) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, fields ...Fields) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...Fields) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, fields ...Fields) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []Fields) {
	if l == nil || l.z == nil {
		return
	}
	ce := l.z.Check(lvl, msg)
	if ce == nil {
		return
	}
	all := Fields{}
	if ctx != nil {
		if fromCtx, ok := ctx.Value(ctxKey{}).(Fields); ok {
			for k, v := range fromCtx {
				all[k] = v
			}
		}
	}
	for _, f := range fields {
		for k, v := range f {
			all[k] = v
		}
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, all[k]))
	}
	ce.Write(zf...)
}
