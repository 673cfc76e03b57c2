package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapLogger implements the Logger interface using uber-go/zap.
type ZapLogger struct {
	logger *zap.Logger
	fields []Field
}

// ZapOption configures a zap-backed logger.
type ZapOption func(*zapOptions)

type zapOptions struct {
	development bool
	level       *zapcore.Level
	filePath    string
	maxSizeMB   int
	maxBackups  int
}

func defaultZapOptions() *zapOptions {
	return &zapOptions{
		maxSizeMB:  5,
		maxBackups: 5,
	}
}

// WithDevelopmentMode enables the human-readable development encoder.
func WithDevelopmentMode() ZapOption {
	return func(opts *zapOptions) {
		opts.development = true
	}
}

// WithDebugLevel lowers the minimum level to debug.
func WithDebugLevel() ZapOption {
	return func(opts *zapOptions) {
		level := zapcore.DebugLevel
		opts.level = &level
	}
}

// WithLogLevel sets a specific minimum level.
func WithLogLevel(level Level) ZapOption {
	return func(opts *zapOptions) {
		var zapLevel zapcore.Level
		switch level {
		case DEBUG:
			zapLevel = zapcore.DebugLevel
		case WARN:
			zapLevel = zapcore.WarnLevel
		case ERROR:
			zapLevel = zapcore.ErrorLevel
		default:
			zapLevel = zapcore.InfoLevel
		}
		opts.level = &zapLevel
	}
}

// WithRotatingFile duplicates log output to a size-rotated file in addition
// to stdout. Rotation keeps maxBackups files of maxSizeMB each.
func WithRotatingFile(path string, maxSizeMB, maxBackups int) ZapOption {
	return func(opts *zapOptions) {
		opts.filePath = path
		if maxSizeMB > 0 {
			opts.maxSizeMB = maxSizeMB
		}
		if maxBackups > 0 {
			opts.maxBackups = maxBackups
		}
	}
}

// NewZapLogger creates a Logger backed by zap. On configuration failure it
// falls back to the plain JSON logger so callers always get a usable logger.
func NewZapLogger(options ...ZapOption) Logger {
	opts := defaultZapOptions()
	for _, opt := range options {
		opt(opts)
	}

	level := zapcore.InfoLevel
	if opts.level != nil {
		level = *opts.level
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if opts.development {
		devConfig := zap.NewDevelopmentEncoderConfig()
		devConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(devConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	atom := zap.NewAtomicLevelAt(level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), atom),
	}

	if opts.filePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.filePath,
			MaxSize:    opts.maxSizeMB,
			MaxBackups: opts.maxBackups,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			atom,
		))
	}

	logger := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return &ZapLogger{logger: logger}
}

// Debug implements Logger.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(l.convertFields(fields...)...)
	}
}

// Info implements Logger.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(l.convertFields(fields...)...)
	}
}

// Warn implements Logger.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(l.convertFields(fields...)...)
	}
}

// Error implements Logger.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(l.convertFields(fields...)...)
	}
}

// WithFields implements Logger.
func (l *ZapLogger) WithFields(fields ...Field) Logger {
	child := *l
	child.fields = make([]Field, 0, len(l.fields)+len(fields))
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, fields...)
	return &child
}

// SetLevel implements Logger. Zap levels are fixed at construction time, so
// this is a no-op beyond a notice; pass WithLogLevel to NewZapLogger instead.
func (l *ZapLogger) SetLevel(level Level) {
	l.logger.Info("SetLevel has no effect on a zap logger; configure the level at construction")
}

// SetOutput implements Logger by swapping in a new core writing to w.
func (l *ZapLogger) SetOutput(w io.Writer) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(l.logger.Level()),
	)
	l.logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// Sync flushes buffered entries. Call during orderly shutdown.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapLogger) convertFields(fields ...Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		zapFields = append(zapFields, zap.Any(f.Key, f.Value))
	}
	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, f.Value))
	}
	return zapFields
}
