package log

import (
	"github.com/kvquorum/kvsema/common/log/tag"
)

type (
	// Logger is the logging interface.
	// Usage example:
	//  logger.Info("acquired slot",
	//          tag.LockPath("deploy/lock"),
	//          tag.HolderID("node-1"),
	//  )
	// Note: msg should be static, do not use fmt.Sprintf() for msg.
	// Anything dynamic should be tagged.
	Logger interface {
		Debug(msg string, tags ...tag.Tag)
		Info(msg string, tags ...tag.Tag)
		Warn(msg string, tags ...tag.Tag)
		Error(msg string, tags ...tag.Tag)
		Fatal(msg string, tags ...tag.Tag)
	}

	// WithLogger is an optional interface returning a new logger instance
	// with the given tags prepended to every message.
	WithLogger interface {
		With(tags ...tag.Tag) Logger
	}
)

// With returns a logger that prepends the given tags to every message. The
// zap-backed logger implements WithLogger natively; anything else gets the
// generic prepender.
func With(logger Logger, tags ...tag.Tag) Logger {
	if wl, ok := logger.(WithLogger); ok {
		return wl.With(tags...)
	}
	return newPrependLogger(logger, tags)
}

type prependLogger struct {
	logger Logger
	tags   []tag.Tag
}

func newPrependLogger(logger Logger, tags []tag.Tag) *prependLogger {
	return &prependLogger{
		logger: logger,
		tags:   tags,
	}
}

func (l *prependLogger) prepend(tags []tag.Tag) []tag.Tag {
	return append(l.tags[:len(l.tags):len(l.tags)], tags...)
}

func (l *prependLogger) Debug(msg string, tags ...tag.Tag) {
	l.logger.Debug(msg, l.prepend(tags)...)
}

func (l *prependLogger) Info(msg string, tags ...tag.Tag) {
	l.logger.Info(msg, l.prepend(tags)...)
}

func (l *prependLogger) Warn(msg string, tags ...tag.Tag) {
	l.logger.Warn(msg, l.prepend(tags)...)
}

func (l *prependLogger) Error(msg string, tags ...tag.Tag) {
	l.logger.Error(msg, l.prepend(tags)...)
}

func (l *prependLogger) Fatal(msg string, tags ...tag.Tag) {
	l.logger.Fatal(msg, l.prepend(tags)...)
}
