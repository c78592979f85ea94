package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	c "eventers-ticket-ledger/context"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

const CorrelationId = "correlation_id"

var newlines = regexp.MustCompile(`(\n)|(\r\n)`)

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
}

// Configure applies the level and format from configuration. Unknown levels fall back to info.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output; tests use it to capture entries.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func entry(ctx context.Context) *logrus.Entry {
	e := logger.WithField(CorrelationId, c.GetContextValue(ctx, c.ContextKeyCorrelationID))
	if caller := c.Caller(ctx); caller != "" {
		e = e.WithField("caller", caller)
	}
	return e
}

// WithFields returns an entry carrying the request fields plus the given ones.
func WithFields(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return entry(ctx).WithFields(fields)
}

func Fatalf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Fatalf(format, args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Infof(format, args...)
}

func Info(ctx context.Context, msg string) {
	entry(ctx).Info(msg)
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Debug(escapeString(format, args...))
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Error(escapeString(format, args...))
}

// LogExecutionTime logs how long has passed since start; call it deferred.
func LogExecutionTime(ctx context.Context, start time.Time, msg string) {
	entry(ctx).WithField("duration", time.Since(start).String()).Debug(msg)
}

func escapeString(format string, args ...interface{}) string {
	return newlines.ReplaceAllString(fmt.Sprintf(format, args...), "\\n ")
}
