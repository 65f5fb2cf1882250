package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kvquorum/kvsema/common/log/tag"
)

const (
	// we put a default message when it is empty so that the log can be searchable/filterable
	defaultMsgForEmpty = "none"
)

type (
	// Config describes the configuration for the zap-backed logger.
	Config struct {
		// Level is the desired log level; defaults to "info"
		Level string `yaml:"level"`
		// OutputFile is the path to the log output file; stderr if empty
		OutputFile string `yaml:"outputFile"`
		// Stdout is true if the output needs to go to standard out; overrides OutputFile
		Stdout bool `yaml:"stdout"`
	}

	// zapLogger is a Logger backed by zap.Logger.
	zapLogger struct {
		zl *zap.Logger
	}
)

var _ Logger = (*zapLogger)(nil)

// NewTestLogger returns a logger at debug level logging to stderr.
func NewTestLogger() *zapLogger {
	return NewZapLogger(BuildZapLogger(Config{
		Level: "debug",
	}))
}

// NewNoopLogger returns a logger that drops everything.
func NewNoopLogger() *zapLogger {
	return NewZapLogger(zap.NewNop())
}

// NewZapLogger returns a new Logger from an existing zap.Logger.
func NewZapLogger(zl *zap.Logger) *zapLogger {
	return &zapLogger{
		zl: zl,
	}
}

// BuildZapLogger builds and returns a new zap.Logger for this logging configuration.
func BuildZapLogger(cfg Config) *zap.Logger {
	encodeConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	outputPath := "stderr"
	if len(cfg.OutputFile) > 0 {
		outputPath = cfg.OutputFile
	}
	if cfg.Stdout {
		outputPath = "stdout"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseZapLevel(cfg.Level)),
		Development:      false,
		Sampling:         nil,
		Encoding:         "json",
		EncoderConfig:    encodeConfig,
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{outputPath},
	}
	logger, _ := config.Build()
	return logger
}

func parseZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func fillFields(tags []tag.Tag) []zap.Field {
	fields := make([]zap.Field, len(tags))
	for i, t := range tags {
		fields[i] = t.Field()
	}
	return fields
}

func setDefaultMsg(msg string) string {
	if msg == "" {
		return defaultMsgForEmpty
	}
	return msg
}

func (l *zapLogger) Debug(msg string, tags ...tag.Tag) {
	if l.zl.Core().Enabled(zap.DebugLevel) {
		l.zl.Debug(setDefaultMsg(msg), fillFields(tags)...)
	}
}

func (l *zapLogger) Info(msg string, tags ...tag.Tag) {
	if l.zl.Core().Enabled(zap.InfoLevel) {
		l.zl.Info(setDefaultMsg(msg), fillFields(tags)...)
	}
}

func (l *zapLogger) Warn(msg string, tags ...tag.Tag) {
	if l.zl.Core().Enabled(zap.WarnLevel) {
		l.zl.Warn(setDefaultMsg(msg), fillFields(tags)...)
	}
}

func (l *zapLogger) Error(msg string, tags ...tag.Tag) {
	if l.zl.Core().Enabled(zap.ErrorLevel) {
		l.zl.Error(setDefaultMsg(msg), fillFields(tags)...)
	}
}

func (l *zapLogger) Fatal(msg string, tags ...tag.Tag) {
	if l.zl.Core().Enabled(zap.FatalLevel) {
		l.zl.Fatal(setDefaultMsg(msg), fillFields(tags)...)
	}
}

func (l *zapLogger) With(tags ...tag.Tag) Logger {
	return &zapLogger{
		zl: l.zl.With(fillFields(tags)...),
	}
}
