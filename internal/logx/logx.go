// Package logx is the engine's ambient diagnostics stack: a leveled,
// fmt-formatted writer plus a thin Sentry wrapper. No package in the
// teacher repo wraps a structured-logging library (zerolog/zap/logrus are
// absent from every go.mod in the corpus); its actual practice is plain
// fmt-formatted output plus crash reporting through sentry-go, reproduced
// here for the worker process.
package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Level is a log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger writes leveled, fmt-formatted lines tagged with a job/step
// context, mirroring the teacher's plain-text output style.
type Logger struct {
	w      io.Writer
	fields map[string]string
}

// New returns a Logger writing to os.Stderr.
func New() *Logger {
	return &Logger{w: os.Stderr, fields: map[string]string{}}
}

// With returns a derived Logger carrying an additional key/value field.
func (l *Logger) With(key, value string) *Logger {
	fields := make(map[string]string, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{w: l.w, fields: fields}
}

func (l *Logger) log(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ts := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s [%s] %s", ts, level, msg)
	for k, v := range l.fields {
		line += fmt.Sprintf(" %s=%s", k, v)
	}
	fmt.Fprintln(l.w, line)
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

// InitSentry initializes the Sentry SDK. If SENTRY_DSN is not set, Sentry
// is disabled (no-op). Returns a cleanup function to defer.
func InitSentry(dsn, environment, release string) func() {
	if dsn == "" {
		return func() {}
	}
	if environment == "" {
		environment = "production"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		Environment:      environment,
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return func() {}
	}
	return func() { sentry.Flush(flushTimeout) }
}

// CaptureError reports an error to Sentry if initialized. Safe to call
// even when Sentry is not configured.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureMessage reports a message to Sentry if initialized.
func CaptureMessage(msg string) {
	sentry.CaptureMessage(msg)
}

// RecoverAndPanic recovers from a panic, reports it to Sentry, then
// re-panics. Use with defer at top-level entry points (cmd/worker).
func RecoverAndPanic() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(flushTimeout)
		panic(r)
	}
}

// SetTag sets a tag for filtering errors (e.g. job_id, tenant_id).
func SetTag(key, value string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(key, value)
	})
}
