package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	WithFields(fields map[string]any) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debug(args ...any) {
	l.entry.Debug(args...)
}

func (l *logrusLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(args ...any) {
	l.entry.Info(args...)
}

func (l *logrusLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Error(args ...any) {
	l.entry.Error(args...)
}

func (l *logrusLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Warn(args ...any) {
	l.entry.Warn(args...)
}

func (l *logrusLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Fatal(args ...any) {
	l.entry.Fatal(args...)
}

func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusLogger) WithFields(fields map[string]any) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func NewLogger(ctx context.Context) Logger {
	factory := GetLoggerFactory()
	if factory != nil {
		return factory.CreateLogger(ctx)
	}

	return newLogrusLogger(ctx)
}

func newLogrusLogger(ctx context.Context) Logger {
	logger := logrus.New()
	return &logrusLogger{entry: logger.WithContext(ctx).WithFields(contextFields(ctx))}
}

// LogrusFactory shares one configured logrus instance across every logger it
// creates.
type LogrusFactory struct {
	base *logrus.Logger
}

// NewLogrusFactory builds a factory for the given level (debug, info, warn,
// error) and format (text, json). Unknown levels fall back to info.
func NewLogrusFactory(level string, format string, out io.Writer) *LogrusFactory {
	base := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &LogrusFactory{base: base}
}

func (f *LogrusFactory) CreateLogger(ctx context.Context) Logger {
	return &logrusLogger{entry: f.base.WithContext(ctx).WithFields(contextFields(ctx))}
}

type fieldsKey struct{}

// ContextWithFields attaches correlation fields that every logger created from
// the returned context will carry.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	merged := make(map[string]any, len(fields))
	for k, v := range contextFields(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func contextFields(ctx context.Context) logrus.Fields {
	if ctx == nil {
		return logrus.Fields{}
	}
	fields, ok := ctx.Value(fieldsKey{}).(map[string]any)
	if !ok {
		return logrus.Fields{}
	}
	return logrus.Fields(fields)
}
