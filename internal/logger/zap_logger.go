package logger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapTraceLevel sits one step below zap's DebugLevel
const zapTraceLevel = zapcore.DebugLevel - 1

// ZapLogger is the zap-backed root logger. JSON output uses zap's production
// config, text output the development config.
type ZapLogger struct {
	config *LoggingConfig
	base   *zap.Logger
}

// NewZapLogger builds a zap root logger from the logging configuration
func NewZapLogger(cfg *LoggingConfig) (*ZapLogger, error) {
	if cfg == nil {
		return nil, errors.New("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	var zapConfig zap.Config
	if cfg.JSON {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Filtering happens per module, the core accepts everything
	zapConfig.Level = zap.NewAtomicLevelAt(zapTraceLevel)
	zapConfig.DisableStacktrace = true
	zapConfig.Sampling = nil
	zapConfig.EncoderConfig.MessageKey = "msg"
	zapConfig.EncoderConfig.EncodeLevel = encodeZapLevel
	zapConfig.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(tz).Format(time.RFC3339Nano))
	}
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.File != "" {
		if err := ensureFileDirectory(cfg.File); err != nil {
			return nil, err
		}
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.File)
	}

	base, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{config: cfg, base: base}, nil
}

func encodeZapLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l <= zapTraceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

// Module returns a logger scoped to a module
func (z *ZapLogger) Module(name string) Logger {
	if z == nil {
		return NewDiscardLogger()
	}
	return &zapModuleLogger{
		root:   z,
		module: name,
		logger: z.base.With(zap.String(moduleKey, name)),
		level:  toZapLevel(parseLogLevel(levelForModule(z.config, name))),
	}
}

// Flush syncs zap's sinks
func (z *ZapLogger) Flush() error {
	if z == nil {
		return nil
	}
	return ignoreSyncErr(z.base.Sync())
}

// Close flushes buffered entries
func (z *ZapLogger) Close() error {
	return z.Flush()
}

// ignoreSyncErr drops the EINVAL returned when syncing a terminal
func ignoreSyncErr(err error) error {
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, os.ErrInvalid) {
		return nil
	}
	return err
}

type zapModuleLogger struct {
	root   *ZapLogger
	module string
	logger *zap.Logger
	level  zapcore.Level
	fields []Field
}

func (m *zapModuleLogger) Module(name string) Logger {
	module := m.module + "." + name
	return &zapModuleLogger{
		root:   m.root,
		module: module,
		logger: m.root.base.With(zap.String(moduleKey, module)),
		level:  toZapLevel(parseLogLevel(levelForModule(m.root.config, module))),
		fields: slices.Clone(m.fields),
	}
}

func (m *zapModuleLogger) Trace(msg string, fields ...Field) { m.log(zapTraceLevel, msg, fields) }
func (m *zapModuleLogger) Debug(msg string, fields ...Field) { m.log(zapcore.DebugLevel, msg, fields) }
func (m *zapModuleLogger) Info(msg string, fields ...Field)  { m.log(zapcore.InfoLevel, msg, fields) }
func (m *zapModuleLogger) Warn(msg string, fields ...Field)  { m.log(zapcore.WarnLevel, msg, fields) }
func (m *zapModuleLogger) Error(msg string, fields ...Field) { m.log(zapcore.ErrorLevel, msg, fields) }

func (m *zapModuleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(toZapLevel(parseSlogLevel(level)), msg, fields)
}

func (m *zapModuleLogger) With(fields ...Field) Logger {
	return &zapModuleLogger{
		root:   m.root,
		module: m.module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

func (m *zapModuleLogger) WithContext(ctx context.Context) Logger {
	traceID := getTraceIDFromContext(ctx)
	if traceID == "" {
		return m
	}
	return m.With(String(traceIDKey, traceID))
}

func (m *zapModuleLogger) Flush() error {
	return ignoreSyncErr(m.logger.Sync())
}

func (m *zapModuleLogger) log(level zapcore.Level, msg string, fields []Field) {
	if level < m.level {
		return
	}
	ce := m.logger.Check(level, msg)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, len(m.fields)+len(fields))
	for i := range m.fields {
		zf = append(zf, toZapField(m.fields[i]))
	}
	for i := range fields {
		zf = append(zf, toZapField(fields[i]))
	}
	ce.Write(zf...)
}

func toZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= traceLevelValue:
		return zapTraceLevel
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func toZapField(f Field) zap.Field {
	f = redactField(f)
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, roundFloat(v))
	case bool:
		return zap.Bool(f.Key, v)
	case time.Time:
		return zap.Time(f.Key, v)
	case time.Duration:
		return zap.String(f.Key, v.Round(time.Millisecond).String())
	case nil:
		return zap.Skip()
	default:
		return zap.Any(f.Key, v)
	}
}
